package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

// One blob per stage collection plus the display-number counter. Stages
// never share a blob key.
const (
	receptionKey = "queue_reception"
	doctorKey    = "queue_doctor"
	pharmacyKey  = "queue_pharmacy"
	completedKey = "queue_completed"
	counterKey   = "queue_counter"
)

const counterStart = 1

type repoLocal struct {
	store *localstore.Store

	mu      sync.Mutex
	stages  map[string][]*Entry
	counter int64
}

// NewRepoLocal returns the fallback queue repository, one JSON blob per
// stage.
func NewRepoLocal(store *localstore.Store) (Repository, error) {
	r := &repoLocal{
		store:   store,
		stages:  make(map[string][]*Entry),
		counter: counterStart,
	}

	for stage, key := range stageKeys() {
		var items []*Entry
		if _, err := store.Load(key, &items); err != nil {
			return nil, err
		}
		r.stages[stage] = items
	}
	var counter int64
	found, err := store.Load(counterKey, &counter)
	if err != nil {
		return nil, err
	}
	if found {
		r.counter = counter
	}
	return r, nil
}

func stageKeys() map[string]string {
	return map[string]string{
		StageReception: receptionKey,
		StageDoctor:    doctorKey,
		StagePharmacy:  pharmacyKey,
		StageCompleted: completedKey,
	}
}

func cloneEntry(e *Entry) *Entry {
	cp := *e
	if e.Prescription != nil {
		cp.Prescription = append(json.RawMessage(nil), e.Prescription...)
	}
	return &cp
}

// persistStage writes one stage collection back whole. Callers hold r.mu.
func (r *repoLocal) persistStage(stage string) error {
	return r.store.Save(stageKeys()[stage], r.stages[stage])
}

func matchesIdentity(e *Entry, email, nic, medicalRecordID string) bool {
	return (email != "" && e.Email == email) ||
		(nic != "" && e.NIC == nic) ||
		(medicalRecordID != "" && e.MedicalRecordID == medicalRecordID)
}

func (r *repoLocal) Insert(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check and insert happen under one lock, so two near-simultaneous
	// intakes of the same patient cannot both pass the check.
	for _, existing := range r.stages[StageReception] {
		if matchesIdentity(existing, e.Email, e.NIC, e.MedicalRecordID) {
			return ErrDuplicate
		}
	}

	e.QueueNo = fmt.Sprintf("Q%03d", r.counter)
	r.counter++

	r.stages[StageReception] = append(r.stages[StageReception], cloneEntry(e))
	if err := r.store.Save(counterKey, r.counter); err != nil {
		return err
	}
	return r.persistStage(StageReception)
}

func (r *repoLocal) FindByIdentity(_ context.Context, stage, email, nic, medicalRecordID string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s, items := range r.stages {
		if stage != "" && s != stage {
			continue
		}
		for _, e := range items {
			if matchesIdentity(e, email, nic, medicalRecordID) {
				return cloneEntry(e), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *repoLocal) GetByQueueNo(_ context.Context, queueNo string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.findLocked(queueNo, ""); e != nil {
		return cloneEntry(e), nil
	}
	return nil, ErrNotFound
}

// findLocked returns the live entry, not a clone. Callers hold r.mu.
func (r *repoLocal) findLocked(queueNo, stage string) *Entry {
	for s, items := range r.stages {
		if stage != "" && s != stage {
			continue
		}
		for _, e := range items {
			if e.QueueNo == queueNo {
				return e
			}
		}
	}
	return nil
}

func (r *repoLocal) ListStage(_ context.Context, stage string) ([]*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.stages[stage]
	out := make([]*Entry, len(items))
	for i, e := range items {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

// move removes the entry from the source stage, applies mutate, and inserts
// it into the destination, all under one lock.
func (r *repoLocal) move(queueNo, from, to string, mutate func(*Entry)) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.stages[from]
	for i, e := range items {
		if e.QueueNo != queueNo {
			continue
		}
		mutate(e)
		e.Stage = to

		r.stages[from] = append(items[:i], items[i+1:]...)
		r.stages[to] = append(r.stages[to], e)

		if err := r.persistStage(from); err != nil {
			return nil, err
		}
		if err := r.persistStage(to); err != nil {
			return nil, err
		}
		return cloneEntry(e), nil
	}
	return nil, ErrNotFound
}

func (r *repoLocal) MoveToDoctor(_ context.Context, queueNo string, at time.Time) (*Entry, error) {
	return r.move(queueNo, StageReception, StageDoctor, func(e *Entry) {
		e.Status = StatusWithDoctor
		stamp := at
		e.MovedToDoctorAt = &stamp
	})
}

func (r *repoLocal) MoveToPharmacy(_ context.Context, queueNo string, prescription json.RawMessage, at time.Time) (*Entry, error) {
	return r.move(queueNo, StageDoctor, StagePharmacy, func(e *Entry) {
		e.Status = StatusAtPharmacy
		e.Prescription = append(json.RawMessage(nil), prescription...)
		e.PharmacyStatus = "Pending"
		stamp := at
		e.MovedToPharmacyAt = &stamp
	})
}

func (r *repoLocal) Complete(_ context.Context, queueNo string, at time.Time) (*Entry, error) {
	return r.move(queueNo, StagePharmacy, StageCompleted, func(e *Entry) {
		e.Status = StatusCompleted
		e.PharmacyStatus = "Dispensed"
		stamp := at
		e.CompletedAt = &stamp
	})
}

func (r *repoLocal) UpdateStatus(_ context.Context, stage, queueNo string, upd StatusUpdate) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findLocked(queueNo, stage)
	if e == nil {
		return nil, ErrNotFound
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.Priority != nil {
		e.Priority = *upd.Priority
	}
	if upd.PharmacyStatus != nil {
		e.PharmacyStatus = *upd.PharmacyStatus
	}
	if err := r.persistStage(stage); err != nil {
		return nil, err
	}
	return cloneEntry(e), nil
}

func (r *repoLocal) Stats(_ context.Context) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := &Stats{
		Reception: len(r.stages[StageReception]),
		Doctor:    len(r.stages[StageDoctor]),
		Pharmacy:  len(r.stages[StagePharmacy]),
		Completed: len(r.stages[StageCompleted]),
	}
	st.Total = st.Reception + st.Doctor + st.Pharmacy + st.Completed
	return st, nil
}

func (r *repoLocal) ClearAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter = counterStart
	for stage := range stageKeys() {
		r.stages[stage] = nil
		if err := r.persistStage(stage); err != nil {
			return err
		}
	}
	return r.store.Save(counterKey, r.counter)
}
