package buienradar

// stationQuery selects the fields the dashboard renders.
const stationQuery = `
query {
  weatherData {
    actual {
      stationmeasurements {
        stationid
        stationname
        regio
        timestamp
        weatherdescription
        fullIconUrl
        lat
        lon
        windspeed
        temperature
        feeltemperature
        humidity
        airpressure
        rainFallLast24Hour
        rainFallLastHour
      }
    }
    forecast {
      fivedayforecast {
        day
        maxtemperatureMax
        mintemperatureMin
        rainChance
        windDirection
        wind
        fullIconUrl
      }
    }
  }
}`
