package benchmarks

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/xinaxu/mapr"
)

// Random and sequential reads through a mapping, compared against pread on
// the same file and against bbolt serving the same payload. bbolt reads
// through its own memory map, so the spread between the two map-backed rows
// is the B-tree lookup cost, while the pread row prices the syscall path
// the mapping avoids.

const (
	valueSize = 4096
	numValues = 4096
)

var (
	fixtureOnce sync.Once
	fixtureErr  error
	dataPath    string
	boltPath    string
)

// fixture lays out numValues records of valueSize bytes in a flat file and
// in a bbolt bucket keyed by big-endian record index. Both files are built
// once and reused by every benchmark in the package.
func fixture(b *testing.B) (string, string) {
	fixtureOnce.Do(func() {
		dir, err := os.MkdirTemp("", "mapr-bench")
		if err != nil {
			fixtureErr = err
			return
		}
		dataPath = filepath.Join(dir, "flat.dat")
		boltPath = filepath.Join(dir, "bolt.db")

		rng := rand.New(rand.NewSource(1))
		payload := make([]byte, numValues*valueSize)
		rng.Read(payload)

		if fixtureErr = os.WriteFile(dataPath, payload, 0644); fixtureErr != nil {
			return
		}

		db, err := bolt.Open(boltPath, 0644, nil)
		if err != nil {
			fixtureErr = err
			return
		}
		defer db.Close()

		fixtureErr = db.Update(func(tx *bolt.Tx) error {
			bkt, err := tx.CreateBucket([]byte("bench"))
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			for i := 0; i < numValues; i++ {
				binary.BigEndian.PutUint64(key, uint64(i))
				if err := bkt.Put(key, payload[i*valueSize:(i+1)*valueSize]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if fixtureErr != nil {
		b.Fatal(fixtureErr)
	}
	return dataPath, boltPath
}

func BenchmarkRandomRead(b *testing.B) {
	flat, boltdb := fixture(b)

	b.Run("mapr", func(b *testing.B) {
		f, err := os.Open(flat)
		if err != nil {
			b.Fatal(err)
		}
		defer f.Close()
		m, err := mapr.Map(f)
		if err != nil {
			b.Fatal(err)
		}
		defer m.Close()

		rng := rand.New(rand.NewSource(42))
		var sink byte
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			off := rng.Intn(numValues) * valueSize
			v := m.Data()[off : off+valueSize]
			sink ^= v[0] ^ v[valueSize-1]
		}
		_ = sink
	})

	b.Run("pread", func(b *testing.B) {
		f, err := os.Open(flat)
		if err != nil {
			b.Fatal(err)
		}
		defer f.Close()

		rng := rand.New(rand.NewSource(42))
		buf := make([]byte, valueSize)
		var sink byte
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			off := int64(rng.Intn(numValues) * valueSize)
			if _, err := f.ReadAt(buf, off); err != nil {
				b.Fatal(err)
			}
			sink ^= buf[0] ^ buf[valueSize-1]
		}
		_ = sink
	})

	b.Run("bbolt", func(b *testing.B) {
		db, err := bolt.Open(boltdb, 0644, &bolt.Options{ReadOnly: true})
		if err != nil {
			b.Fatal(err)
		}
		defer db.Close()

		rng := rand.New(rand.NewSource(42))
		key := make([]byte, 8)
		var sink byte
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			binary.BigEndian.PutUint64(key, uint64(rng.Intn(numValues)))
			err := db.View(func(tx *bolt.Tx) error {
				v := tx.Bucket([]byte("bench")).Get(key)
				sink ^= v[0] ^ v[valueSize-1]
				return nil
			})
			if err != nil {
				b.Fatal(err)
			}
		}
		_ = sink
	})
}

func BenchmarkSequentialScan(b *testing.B) {
	flat, _ := fixture(b)

	b.Run("mapr", func(b *testing.B) {
		f, err := os.Open(flat)
		if err != nil {
			b.Fatal(err)
		}
		defer f.Close()
		m, err := mapr.Map(f)
		if err != nil {
			b.Fatal(err)
		}
		defer m.Close()

		b.SetBytes(numValues * valueSize)
		b.ResetTimer()
		b.ReportAllocs()
		var sink byte
		for i := 0; i < b.N; i++ {
			data := m.Data()
			for off := 0; off < len(data); off += valueSize {
				sink ^= data[off]
			}
		}
		_ = sink
	})

	b.Run("pread", func(b *testing.B) {
		f, err := os.Open(flat)
		if err != nil {
			b.Fatal(err)
		}
		defer f.Close()

		buf := make([]byte, valueSize)
		b.SetBytes(numValues * valueSize)
		b.ResetTimer()
		b.ReportAllocs()
		var sink byte
		for i := 0; i < b.N; i++ {
			for v := 0; v < numValues; v++ {
				if _, err := f.ReadAt(buf, int64(v*valueSize)); err != nil {
					b.Fatal(err)
				}
				sink ^= buf[0]
			}
		}
		_ = sink
	})
}
