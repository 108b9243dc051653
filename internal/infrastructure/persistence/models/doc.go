// Package models holds the GORM table mappings of the ledger. Domain types in
// internal/domain/ledger carry no ORM tags; each model converts to and from its
// domain counterpart with ToDomain and FromDomain.
//
// The tables mirror migrations/000001_create_ledger_tables.up.sql so the SQLite
// AutoMigrate used in tests and the PostgreSQL schema stay in step.
package models
