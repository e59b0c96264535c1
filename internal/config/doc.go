// Package config provides centralized configuration management for the sensor
// calibration service.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (config.yaml, configs/config.yaml or SENSOR_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SENSOR_<SECTION>_<FIELD>:
//
//	SENSOR_SERVER_PORT=8080
//	SENSOR_LOGGING_LEVEL=debug
//	SENSOR_CALIBRATION_MODE=strict
//	SENSOR_PROCESSING_SENTINELS=-1000000,-999979
//	SENSOR_STORAGE_DB_PATH=data/sensor.db
//	SENSOR_INFLUXDB_ENABLED=true
//
// # Path Management
//
// ResolvePaths turns the configured directories into absolute paths rooted at
// the executable directory (or Paths.BaseDir):
//
//	paths, err := config.ResolvePaths(cfg)
//	reportPath := paths.GetReportPath("summary.csv")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
