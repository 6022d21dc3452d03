package app

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/ayusman/handeye/internal/opt"
	"github.com/ayusman/handeye/internal/orientation"
	"github.com/ayusman/handeye/internal/store"
)

// recording is one open session and its next sample number.
type recording struct {
	session *store.Session
	seq     int64
}

// recorder appends pushed samples to the open session of the source that
// produced the frame. Each source has at most one open session. Callers
// serialize access through App.submitMu.
type recorder struct {
	store  *store.Store
	active map[store.Source]*recording
}

func newRecorder(s *store.Store) *recorder {
	return &recorder{
		store:  s,
		active: make(map[store.Source]*recording),
	}
}

// begin ends the open session of the same source, if any, and starts a new one.
func (r *recorder) begin(sess *store.Session) (*store.Session, error) {
	if err := r.end(sess.Source); err != nil {
		log.Printf("Failed to end previous %s session: %v", sess.Source, err)
	}
	if err := r.store.Sessions().Create(sess); err != nil {
		return nil, err
	}

	r.active[sess.Source] = &recording{session: sess}
	log.Printf("Recording session %s (%s)", sess.ID, sess.Source)
	return sess, nil
}

func (r *recorder) end(source store.Source) error {
	rec, ok := r.active[source]
	if !ok {
		return nil
	}
	delete(r.active, source)
	return r.store.Sessions().End(rec.session.ID)
}

func (r *recorder) endAll() error {
	var errs []error
	for source := range r.active {
		errs = append(errs, r.end(source))
	}
	return errors.Join(errs...)
}

func (r *recorder) current(source store.Source) *store.Session {
	if rec, ok := r.active[source]; ok {
		return rec.session
	}
	return nil
}

func (r *recorder) record(source store.Source, raw, smoothed opt.Value[orientation.Sample]) error {
	rec, ok := r.active[source]
	if !ok {
		return nil
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	smoothedJSON, err := json.Marshal(smoothed)
	if err != nil {
		return err
	}

	rec.seq++
	return r.store.Samples().Append(&store.Sample{
		SessionID: rec.session.ID,
		Seq:       rec.seq,
		Raw:       rawJSON,
		Smoothed:  smoothedJSON,
	})
}
