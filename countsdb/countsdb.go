// countsdb persists per-sample barcode counts in a bolt database, so
// count accumulation can resume without re-reading the raw count
// files.
package countsdb

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"dmsvar/variant"
)

// log is the global logging variable.
var log = logging.MustGetLogger("countsdb")

// sampleRecord is the stored form of one sample's counts. Seq orders
// samples by insertion so replays preserve the sample order.
type sampleRecord struct {
	Seq    uint64
	Counts []variant.BarcodeCount
}

// DB stores per-sample barcode counts, one bucket per library keyed
// by sample name.
type DB struct {
	db *bolt.DB
}

// Open opens or creates a counts database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Save stores the counts of one sample. Saving a sample twice for
// the same library is an error.
func (d *DB) Save(library, sample string, counts []variant.BarcodeCount) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(library))
		if err != nil {
			return err
		}
		if b.Get([]byte(sample)) != nil {
			return fmt.Errorf("%w: %q in library %q",
				variant.ErrDuplicateSample, sample, library)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		dataB, err := json.Marshal(&sampleRecord{Seq: seq, Counts: counts})
		if err != nil {
			log.Error("Error serializing counts", err)
			return err
		}
		return b.Put([]byte(sample), dataB)
	})
	if err != nil {
		log.Error("Error saving counts", err)
	}
	return err
}

// Load returns the stored counts of one sample, nil when absent.
func (d *DB) Load(library, sample string) ([]variant.BarcodeCount, error) {
	var rec *sampleRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(library))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(sample))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Counts, nil
}

// Samples returns the stored samples of a library in insertion
// order.
func (d *DB) Samples(library string) ([]string, error) {
	type entry struct {
		name string
		seq  uint64
	}
	var entries []entry
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(library))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec sampleRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			entries = append(entries, entry{string(k), rec.Seq})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	samples := make([]string, len(entries))
	for i, e := range entries {
		samples[i] = e.name
	}
	return samples, nil
}

// Libraries returns the stored libraries in sorted order.
func (d *DB) Libraries() ([]string, error) {
	var libraries []string
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			libraries = append(libraries, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(libraries)
	return libraries, nil
}

// AddAll replays every stored sample into the table, library by
// library in sample insertion order.
func (d *DB) AddAll(t *variant.Table) error {
	libraries, err := d.Libraries()
	if err != nil {
		return err
	}
	for _, library := range libraries {
		samples, err := d.Samples(library)
		if err != nil {
			return err
		}
		for _, sample := range samples {
			counts, err := d.Load(library, sample)
			if err != nil {
				return err
			}
			if err := t.AddSampleCounts(library, sample, counts); err != nil {
				return err
			}
			log.Infof("replayed %q counts for library %q", sample, library)
		}
	}
	return nil
}
