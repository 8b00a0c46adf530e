// Package record keeps a ledger of finished episodes in SQLite.
//
// Each terminal episode is stored once with its outcome, move count, the
// number of facts the agent derived and how many moves entered cells not
// proven safe. Stats aggregates the ledger for the API.
package record
