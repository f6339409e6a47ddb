package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/docopt/docopt-go"

	snapcontainer "github.com/Kubiyak/snapshot-container/container"
)

const SnapCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Snapshot container control.

Usage:
    snapctl fuzz [--size=<size>] [--ops=<ops>] [--seed=<seed>] [--snapshot-every=<n>]
    snapctl export [--size=<size>] --jwt-secret=<secret>

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --size=<size>               Initial element count [default: 1000].
    --ops=<ops>                 Number of fuzz operations to run [default: 10000].
    --seed=<seed>               Random seed [default: 1].
    --snapshot-every=<n>        Take a snapshot every n operations [default: 500].
    --jwt-secret=<secret>       HMAC secret used to sign the export manifest.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], SnapCtlVersion)
	if err != nil {
		panic(err)
	}

	if fuzz_, _ := opts.Bool("fuzz"); fuzz_ {
		fuzz(opts)
	} else if export_, _ := opts.Bool("export"); export_ {
		export(opts)
	}
}

// fuzz drives a long randomized sequence of mutations against a
// Container[int], taking periodic snapshots and checking structural
// integrity throughout -- the manual equivalent of TestFragmentationSweep,
// exposed for soak-testing outside go test.
func fuzz(opts docopt.Opts) {
	size, _ := opts.Int("--size")
	ops, _ := opts.Int("--ops")
	seed, _ := opts.Int("--seed")
	snapshotEvery, _ := opts.Int("--snapshot-every")

	rng := rand.New(rand.NewSource(int64(seed)))

	buf := make([]int, size)
	for i := range buf {
		buf[i] = i
	}
	c := snapcontainer.NewContainerFromRandom[int](
		snapcontainer.NewSliceStorageCreator[int](),
		snapcontainer.DefaultCOWConfig(),
		snapcontainer.FromSlice(buf),
	)

	var snapshots []*snapcontainer.Snapshot[int]
	var maxFragmentation float64

	for i := 0; i < ops; i++ {
		switch rng.Intn(4) {
		case 0:
			if c.Size() > 0 {
				if err := c.PushBack(rng.Int()); err != nil {
					Err.Fatalf("push_back failed at op %d: %v", i, err)
				}
			}
		case 1:
			if c.Size() > 0 {
				if err := c.Set(rng.Intn(c.Size()), rng.Int()); err != nil {
					Err.Fatalf("set failed at op %d: %v", i, err)
				}
			}
		case 2:
			if c.Size() > 0 {
				if err := c.PopBack(); err != nil {
					Err.Fatalf("pop_back failed at op %d: %v", i, err)
				}
			}
		case 3:
			if len(snapshots) < 32 {
				snapshots = append(snapshots, c.CreateSnapshot())
			}
		}

		if snapshotEvery > 0 && i%snapshotEvery == 0 {
			snapshots = append(snapshots, c.CreateSnapshot())
			if err := c.CheckIntegrity(); err != nil {
				Err.Fatalf("integrity check failed at op %d: %v", i, err)
			}
			if frag := c.FragmentationIndex(); frag > maxFragmentation {
				maxFragmentation = frag
			}
		}
	}

	Out.Printf("completed %d ops, size=%d, slices=%d, max_fragmentation=%.3f, snapshots_held=%d",
		ops, c.Size(), c.NumSlices(), maxFragmentation, len(snapshots))
}

type exportManifest struct {
	ElementCount int      `json:"element_count"`
	SliceCount   int      `json:"slice_count"`
	StorageIDs   []string `json:"storage_ids"`
	Fragmented   float64  `json:"fragmentation_index"`
}

// export builds a container, takes a snapshot, and prints a JWT-signed
// manifest describing the snapshot's storage layout -- useful for
// auditing which storage segments a long-lived snapshot still holds
// onto before deciding whether to Close it.
func export(opts docopt.Opts) {
	size, _ := opts.Int("--size")
	secret, _ := opts.String("--jwt-secret")

	buf := make([]int, size)
	for i := range buf {
		buf[i] = i
	}
	c := snapcontainer.NewContainerFromRandom[int](
		snapcontainer.NewSliceStorageCreator[int](),
		snapcontainer.DefaultCOWConfig(),
		snapcontainer.FromSlice(buf),
	)
	snap := c.CreateSnapshot()

	manifest := exportManifest{
		ElementCount: snap.Size(),
		SliceCount:   len(snap.StorageIDs()),
		StorageIDs:   snap.StorageIDs(),
		Fragmented:   snap.FragmentationIndex(),
	}

	claims := gojwt.MapClaims{
		"manifest":  manifest,
		"issued_at": time.Now().Unix(),
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		Err.Fatalf("failed to sign manifest: %v", err)
	}

	out, err := json.Marshal(manifest)
	if err != nil {
		Err.Fatalf("failed to marshal manifest: %v", err)
	}
	Out.Printf("%s", out)
	Out.Printf("%s", signed)
}
