// Package domain holds the types shared by every layer of the sensor
// service: the parsed Table of an export, the Classification of its columns
// and the MetricsRecord computed from one file.
package domain
