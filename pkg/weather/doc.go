// Package weather loads timeseries input data for energy system
// scenarios: feed-in availability, temperature, and demand profiles.
//
// Data arrives as CSV, either from local files or fetched over SFTP
// from a data server. Parsed series can be attached to scenario
// components or persisted through the stores package.
package weather
