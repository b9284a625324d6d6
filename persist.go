package carestore

import (
	"errors"

	"github.com/jpalmerr/carestore/appointment"
	"github.com/jpalmerr/carestore/internal/snapshot"
	"github.com/jpalmerr/carestore/profile"
	"github.com/jpalmerr/carestore/training"
)

// persister maps each store to a bucket of the snapshot file.
type persister struct {
	db           *snapshot.DB
	appointments *snapshot.Bucket[appointment.Appointment]
	profiles     *snapshot.Bucket[profile.Profile]
	training     *snapshot.Bucket[training.Progress]
}

func openPersister(path string) (*persister, error) {
	db, err := snapshot.Open(path)
	if err != nil {
		return nil, err
	}

	p := &persister{db: db}
	if p.appointments, err = snapshot.NewBucket[appointment.Appointment](db, StoreAppointments); err != nil {
		_ = db.Close()
		return nil, err
	}
	if p.profiles, err = snapshot.NewBucket[profile.Profile](db, StoreProfiles); err != nil {
		_ = db.Close()
		return nil, err
	}
	if p.training, err = snapshot.NewBucket[training.Progress](db, StoreTraining); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *persister) restore(cs *CareStore) error {
	appts, err := p.appointments.Load()
	if err != nil {
		return err
	}
	profiles, err := p.profiles.Load()
	if err != nil {
		return err
	}
	progress, err := p.training.Load()
	if err != nil {
		return err
	}

	cs.appointments.Entities().Restore(appts)
	cs.profiles.Entities().Restore(profiles)
	cs.training.Entities().Restore(progress)
	return nil
}

func (p *persister) save(cs *CareStore) error {
	return errors.Join(
		p.appointments.Save(cs.appointments.Entities().Snapshot()),
		p.profiles.Save(cs.profiles.Entities().Snapshot()),
		p.training.Save(cs.training.Entities().Snapshot()),
	)
}

func (p *persister) close() error {
	return p.db.Close()
}
