// Package repository defines the donation store and its storage backends.
// The sentinel errors below are shared by every backend so handlers can map
// them to HTTP responses without knowing which engine is in use.
// ErrDuplicateSerial and ErrDuplicateLocation are raised by the storage
// engine's unique constraints and are authoritative even when an earlier
// existence check passed.
package repository

import "errors"

// ErrDonationNotFound is returned when no donation has the requested serial.
var ErrDonationNotFound = errors.New("donation not found")

// ErrDuplicateSerial is returned when the serial number is already recorded.
var ErrDuplicateSerial = errors.New("serial number already exists")

// ErrDuplicateLocation is returned when the block/floor/quarter already has a
// donation.
var ErrDuplicateLocation = errors.New("this location already has a donation")
