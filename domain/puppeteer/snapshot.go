package puppeteer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"go.etcd.io/bbolt"
)

// snapshotBucket holds one JSON-encoded Snapshot per remote height (keyed
// by an 8-byte big-endian height) plus a single pointerKey entry tracking
// the most recent complete height. bbolt's ordered buckets are a better
// fit than a flat LevelDB keyspace for "key by height, advance a pointer":
// a Cursor can walk heights in order without a separate index.
var (
	snapshotBucket = []byte("delegation_snapshots")
	pointerKey     = []byte("last_complete_delegations_and_balances_key")
)

// ValidatorDelegation is one row of a delegations-and-balances ICQ result.
type ValidatorDelegation struct {
	Operator   string
	Amount     *big.Int
	ShareRatio *big.Rat
}

// Snapshot is the delegations-and-balance view at a single remote height,
// stitched together from fixed-size validator chunks. It is "complete"
// only once every chunk has arrived.
type Snapshot struct {
	RemoteHeight    uint64
	Delegations     []ValidatorDelegation
	HostBalance     *big.Int
	CollectedChunks map[int]bool
	TotalChunks     int
}

// Complete reports whether every chunk registered for this height has
// been collected.
func (s *Snapshot) Complete() bool {
	return s.TotalChunks > 0 && len(s.CollectedChunks) == s.TotalChunks
}

// BondedTotal sums the base-asset amount across every delegation row.
func (s *Snapshot) BondedTotal() *big.Int {
	total := big.NewInt(0)
	for _, d := range s.Delegations {
		if d.Amount != nil {
			total.Add(total, d.Amount)
		}
	}
	return total
}

type storedDelegation struct {
	Operator        string `json:"operator"`
	Amount          string `json:"amount"`
	ShareRatioNum   string `json:"share_ratio_num"`
	ShareRatioDenom string `json:"share_ratio_denom"`
}

type storedSnapshot struct {
	RemoteHeight    uint64             `json:"remote_height"`
	Delegations     []storedDelegation `json:"delegations"`
	HostBalance     string             `json:"host_balance"`
	CollectedChunks []int              `json:"collected_chunks"`
	TotalChunks     int                `json:"total_chunks"`
}

func (s *Snapshot) marshal() ([]byte, error) {
	stored := storedSnapshot{
		RemoteHeight: s.RemoteHeight,
		HostBalance:  bigIntString(s.HostBalance),
		TotalChunks:  s.TotalChunks,
	}
	for chunk := range s.CollectedChunks {
		stored.CollectedChunks = append(stored.CollectedChunks, chunk)
	}
	for _, d := range s.Delegations {
		row := storedDelegation{Operator: d.Operator, Amount: bigIntString(d.Amount)}
		if d.ShareRatio != nil {
			row.ShareRatioNum = d.ShareRatio.Num().String()
			row.ShareRatioDenom = d.ShareRatio.Denom().String()
		}
		stored.Delegations = append(stored.Delegations, row)
	}
	return json.Marshal(stored)
}

func unmarshalSnapshot(data []byte) (*Snapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("puppeteer: unmarshal snapshot: %w", err)
	}
	snap := &Snapshot{
		RemoteHeight:    stored.RemoteHeight,
		TotalChunks:     stored.TotalChunks,
		CollectedChunks: make(map[int]bool, len(stored.CollectedChunks)),
		HostBalance:     parseBigIntOrZero(stored.HostBalance),
	}
	for _, chunk := range stored.CollectedChunks {
		snap.CollectedChunks[chunk] = true
	}
	for _, row := range stored.Delegations {
		d := ValidatorDelegation{Operator: row.Operator, Amount: parseBigIntOrZero(row.Amount)}
		if row.ShareRatioNum != "" && row.ShareRatioDenom != "" {
			num, numOK := new(big.Int).SetString(row.ShareRatioNum, 10)
			denom, denomOK := new(big.Int).SetString(row.ShareRatioDenom, 10)
			if numOK && denomOK && denom.Sign() != 0 {
				d.ShareRatio = new(big.Rat).SetFrac(num, denom)
			}
		}
		snap.Delegations = append(snap.Delegations, d)
	}
	return snap, nil
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBigIntOrZero(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func heightKey(height uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, height)
	return buf
}

// SnapshotStore persists delegation/balance snapshots keyed by remote
// height and tracks the monotonically advancing pointer to the latest
// complete one.
type SnapshotStore struct {
	mu sync.Mutex
	db *bbolt.DB
}

// NewSnapshotStore opens (creating if absent) the snapshot bucket in db.
func NewSnapshotStore(db *bbolt.DB) (*SnapshotStore, error) {
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("puppeteer: open snapshot bucket: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Get loads the snapshot at height, if any.
func (s *SnapshotStore) Get(height uint64) (*Snapshot, bool, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(snapshotBucket).Get(heightKey(height))
		if data == nil {
			return nil
		}
		loaded, err := unmarshalSnapshot(data)
		if err != nil {
			return err
		}
		snap = loaded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return snap, snap != nil, nil
}

// Pointer returns the latest height whose snapshot is complete, if any.
func (s *SnapshotStore) Pointer() (uint64, bool, error) {
	var pointer uint64
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(snapshotBucket).Get(pointerKey)
		if data == nil {
			return nil
		}
		if len(data) != 8 {
			return fmt.Errorf("puppeteer: corrupt pointer entry")
		}
		pointer = binary.BigEndian.Uint64(data)
		ok = true
		return nil
	})
	return pointer, ok, err
}

// LatestComplete loads the snapshot at the current pointer, if any.
func (s *SnapshotStore) LatestComplete() (*Snapshot, bool, error) {
	pointer, ok, err := s.Pointer()
	if err != nil || !ok {
		return nil, false, err
	}
	return s.Get(pointer)
}

// MergeChunk folds one validator-chunk ICQ result into the snapshot for
// height, creating it if this is the first chunk observed for that
// height. Once every registered chunk has arrived, the snapshot is
// marked complete and the pointer advances if height exceeds it —
// advancing is monotonic: a later-arriving chunk for an older height
// never regresses the pointer.
func (s *SnapshotStore) MergeChunk(height uint64, chunkIndex, totalChunks int, delegations []ValidatorDelegation, hostBalanceDelta *big.Int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *Snapshot
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		snap := &Snapshot{
			RemoteHeight:    height,
			TotalChunks:     totalChunks,
			CollectedChunks: map[int]bool{},
			HostBalance:     big.NewInt(0),
		}
		if data := bucket.Get(heightKey(height)); data != nil {
			loaded, err := unmarshalSnapshot(data)
			if err != nil {
				return err
			}
			snap = loaded
		}
		if snap.CollectedChunks[chunkIndex] {
			result = snap
			return nil
		}
		snap.CollectedChunks[chunkIndex] = true
		snap.Delegations = append(snap.Delegations, delegations...)
		if hostBalanceDelta != nil {
			snap.HostBalance = new(big.Int).Add(snap.HostBalance, hostBalanceDelta)
		}

		data, err := snap.marshal()
		if err != nil {
			return err
		}
		if err := bucket.Put(heightKey(height), data); err != nil {
			return err
		}

		if snap.Complete() {
			pointerData := bucket.Get(pointerKey)
			advance := pointerData == nil
			if pointerData != nil && len(pointerData) == 8 {
				current := binary.BigEndian.Uint64(pointerData)
				advance = height > current
			}
			if advance {
				buf := make([]byte, 8)
				binary.BigEndian.PutUint64(buf, height)
				if err := bucket.Put(pointerKey, buf); err != nil {
					return err
				}
			}
		}
		result = snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
