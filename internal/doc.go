// Package pvrelay relays solar inverter readings to PVOutput.
//
// # Architecture
//
// The command is structured into several small packages:
//   - apperrors: error kinds (config, http, parse) and exit codes
//   - config: .env file and environment configuration
//   - logging: logrus logger construction
//   - models: shared value types
//   - inverter: status page client and device profiles
//   - pvoutput: status model and API client
//   - relay: one poll-map-post cycle
//   - metrics: run metrics for a Pushgateway or textfile collector
//
// A run reads /js/status.js from the inverter, converts the lifetime total
// from kWh to Wh and submits it to addstatus.jsp flagged as a lifetime
// value. The process exits after one run; scheduling is left to cron or a
// systemd timer.
//
// Example Usage
//
//	reader, _ := inverter.NewClient(inverter.Config{IP: "192.168.1.50", Username: "admin", Password: "admin"})
//	sender := pvoutput.NewClient(pvoutput.Config{APIKey: key, SystemID: id})
//	_, err := relay.New(reader, sender, logger, nil, relay.Options{}).Run(ctx)
package pvrelay
