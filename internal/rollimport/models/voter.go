package models

import (
	id "parrainage/pkg/domain"
)

// Voter is a live entry of the electoral roll.
type Voter struct {
	ID             id.VoterID `json:"id"`
	NationalID     string     `json:"national_id"`
	CardNumber     string     `json:"card_number"`
	LastName       string     `json:"last_name"`
	FirstName      string     `json:"first_name"`
	Region         string     `json:"region"`
	PollingStation string     `json:"polling_station"`
}

// StagedVoter is a parsed roll row held in staging until its batch is promoted.
type StagedVoter struct {
	BatchID id.BatchID
	Row     int
	Voter
}
