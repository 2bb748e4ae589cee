package kinematics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cockroachdb/pebble"
)

const storeKeyPrefix = "mcalI/"

// PebbleStore keeps kinematic matrices on disk in a pebble database, one
// record per fingerprint.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebbleStore(path string) (*PebbleStore, error) {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("kinematics: %s exists and is not a directory", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("kinematics: stat store path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("kinematics: ensure store directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("kinematics: open store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func storeKey(key uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(storeKeyPrefix), key)
}

func (ps *PebbleStore) Load(key uint64) (data []float64, ok bool, err error) {
	value, closer, err := ps.db.Get(storeKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kinematics: load %016x: %w", key, err)
	}
	defer closer.Close()
	if len(value)%8 != 0 {
		return nil, false, fmt.Errorf("kinematics: load %016x: record length %d is not a multiple of 8", key, len(value))
	}
	data = make([]float64, len(value)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(value[8*i:]))
	}
	return data, true, nil
}

func (ps *PebbleStore) Save(key uint64, data []float64) error {
	value := make([]byte, 0, 8*len(data))
	for _, v := range data {
		value = binary.LittleEndian.AppendUint64(value, math.Float64bits(v))
	}
	if err := ps.db.Set(storeKey(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("kinematics: save %016x: %w", key, err)
	}
	return nil
}

func (ps *PebbleStore) Delete(key uint64) error {
	if err := ps.db.Delete(storeKey(key), pebble.Sync); err != nil {
		return fmt.Errorf("kinematics: delete %016x: %w", key, err)
	}
	return nil
}

func (ps *PebbleStore) Close() error {
	return ps.db.Close()
}
