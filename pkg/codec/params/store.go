package params

import "fmt"

// Store maps parameter set ids to their latest definition.
// It does not assume SPS/PPS arrive in any particular order.
type Store struct {
	sps map[uint32]*SPS
	pps map[uint32]*PPS
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sps: make(map[uint32]*SPS),
		pps: make(map[uint32]*PPS),
	}
}

// PutSPS stores s, replacing any SPS with the same id.
func (st *Store) PutSPS(s *SPS) {
	st.sps[s.ID] = s
}

// PutPPS stores p, replacing any PPS with the same id.
func (st *Store) PutPPS(p *PPS) {
	st.pps[p.ID] = p
}

// SPS resolves an SPS by id.
func (st *Store) SPS(id uint32) (*SPS, error) {
	s, ok := st.sps[id]
	if !ok {
		return nil, fmt.Errorf("%w: sps %d", ErrNotFound, id)
	}
	return s, nil
}

// PPS resolves a PPS by id.
func (st *Store) PPS(id uint32) (*PPS, error) {
	p, ok := st.pps[id]
	if !ok {
		return nil, fmt.Errorf("%w: pps %d", ErrNotFound, id)
	}
	return p, nil
}

// Resolve returns the PPS with the given id together with the SPS it references.
func (st *Store) Resolve(ppsID uint32) (*PPS, *SPS, error) {
	p, err := st.PPS(ppsID)
	if err != nil {
		return nil, nil, err
	}
	s, err := st.SPS(p.SPSID)
	if err != nil {
		return nil, nil, err
	}
	return p, s, nil
}

// Len returns the number of stored SPS and PPS.
func (st *Store) Len() (int, int) {
	return len(st.sps), len(st.pps)
}

// Reset drops every stored parameter set.
func (st *Store) Reset() {
	clear(st.sps)
	clear(st.pps)
}
