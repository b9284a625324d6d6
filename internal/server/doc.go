// Package server provides the inspection HTTP server for carestore.
//
// This package is internal to carestore. It serves JSON snapshots of the
// appointment, profile and training stores, a development endpoint to
// approve or reject caregiver profiles, and a Server-Sent Events stream that
// pushes the full state whenever any store changes.
//
// Users of the carestore library should not need to interact with this
// package directly. The server is started by CareStore.Start when a port is
// configured.
package server
