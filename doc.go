// Package carestore holds the local state of the elder-care marketplace app:
// appointment status and feedback, caregiver profile approval, and training
// progress.
//
// Each kind of state lives in an observable entity store. Callers read
// records, write single fields, and subscribe to be told when anything
// changes. A [CareStore] is the composition root: it owns one store of each
// kind for the life of the process, and optionally persists them and serves
// them over HTTP for inspection.
//
// # Quick Start
//
//	cs, err := carestore.New()
//	if err != nil {
//	    slog.Error("failed to create carestore", "error", err)
//	    os.Exit(1)
//	}
//
//	unsubscribe := cs.Profiles().Subscribe(func() {
//	    p := cs.Profiles().Status("u1")
//	    slog.Info("profile changed", "status", p.Status)
//	})
//	defer unsubscribe()
//
//	_ = cs.Profiles().SubmitForReview("u1")
//	_ = cs.Profiles().Approve("u1")
//
// # Persistence and inspection
//
// With [WithSnapshotPath], stores are restored from a bbolt file at
// construction and flushed back while [CareStore.Start] runs. With
// [WithPort], Start also serves a small JSON API with a Server-Sent Events
// change stream:
//
//	cs, _ := carestore.New(
//	    carestore.WithSnapshotPath("carestore.db"),
//	    carestore.WithPort(8080),
//	)
//	defer cs.Close()
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//	cs.Start(ctx) // blocks until ctx is cancelled
//
// # Packages
//
//   - appointment: appointment status, reviews, complaints
//   - profile: caregiver profile approval
//   - training: per-course lesson completion
//   - config: YAML configuration for the carestore binary
//   - internal/store: the generic observable entity store
//   - internal/snapshot: bbolt persistence
//   - internal/server: inspection HTTP server
package carestore
