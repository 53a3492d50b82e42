package core

import "errors"

var (
	// ErrDiscovery is fatal: the service cannot identify its own container.
	ErrDiscovery   = errors.New("discovery failed")
	ErrUnknownKind = errors.New("cannot resolve database type, please specify it via label")
	ErrCapture     = errors.New("error while creating dump")
	ErrEmptyDump   = errors.New("dump file is missing or empty")
	ErrProcessing  = errors.New("error while processing dump")
	ErrNetwork     = errors.New("network isolation failed")
	ErrOwnership   = errors.New("cannot change owner of dump")
)
