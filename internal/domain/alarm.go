package domain

import "time"

// Alarm is raised by the detector when a timestamp bucket of a mint matches
// the dealer pattern.
type Alarm struct {
	ID              string
	Rule            string    // rule type that raised the alarm
	Monitor         string    // monitored address that produced the events
	Mint            string    // token mint
	BucketTimestamp int64     // unix seconds of the evaluated bucket
	BaselineSOL     float64   // SOL amount of the first event
	Amounts         []float64 // SOL amounts of the evaluated events
	RaisedAt        time.Time
}
