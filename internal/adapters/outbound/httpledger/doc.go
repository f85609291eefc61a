// Package httpledger implements ports.Client against the HTTP ledger API
// served by ledgerd.
package httpledger
