package archive

import (
	"bytes"
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

const (
	bloomFPR     = 0.001
	minBloomSize = 1024
)

// Store is the order storage the Importer writes to.
type Store interface {
	// Keys returns the order numbers and personalization ids in use.
	Keys(ctx context.Context) (numbers, personalizationIDs []string, err error)
	Exists(ctx context.Context, number string, pid *string) (bool, error)
	Insert(ctx context.Context, o *order.Order) error
}

// Sequence is the order number sequence realigned after an import.
type Sequence interface {
	AdvanceTo(ctx context.Context, n int64) error
}

// ImportResult summarizes an import.
type ImportResult struct {
	Read     int
	Inserted int
	Skipped  int
	// MaxNumber is the highest numeric order number seen in the archive.
	MaxNumber int64
}

// Importer restores archived orders, keeping their order numbers and
// skipping orders whose order number or personalization id is taken.
type Importer struct {
	store   Store
	seq     Sequence
	workers int
	dryRun  bool
}

// ImportOption configures an Importer.
type ImportOption func(*Importer)

// WithWorkers sets the number of concurrent line decoders.
func WithWorkers(n int) ImportOption {
	return func(i *Importer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithDryRun counts what would be inserted without writing.
func WithDryRun(dryRun bool) ImportOption {
	return func(i *Importer) {
		i.dryRun = dryRun
	}
}

// NewImporter returns an Importer writing to store and realigning seq.
func NewImporter(store Store, seq Sequence, opts ...ImportOption) *Importer {
	i := &Importer{
		store:   store,
		seq:     seq,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type rawLine struct {
	n    int
	data []byte
}

// Import reads the archive from r. Lines are decoded concurrently and
// inserted one at a time. Afterwards the sequence is moved past the
// highest imported order number.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	filter, err := i.existingKeys(ctx)
	if err != nil {
		return nil, err
	}

	var res ImportResult
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan rawLine, 2*i.workers)
	decoded := make(chan *order.Order, 2*i.workers)

	g.Go(func() error {
		defer close(lines)
		n := 0
		return ReadLines(gctx, r, func(line []byte) error {
			n++
			select {
			case lines <- rawLine{n: n, data: bytes.Clone(line)}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var wg sync.WaitGroup
	for range i.workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for l := range lines {
				o, err := DecodeOrder(l.data)
				if err != nil {
					return errors.Wrapf(err, "line %d", l.n)
				}
				select {
				case decoded <- o:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		wg.Wait()
		close(decoded)
		return nil
	})

	g.Go(func() error {
		seen := importRun{filter: filter, accepted: make(map[string]struct{})}
		for o := range decoded {
			if err := i.insert(gctx, &seen, o, &res); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return &res, err
	}

	if !i.dryRun && res.MaxNumber > 0 {
		if err := i.seq.AdvanceTo(ctx, res.MaxNumber); err != nil {
			return &res, errors.Wrap(err, "advance order number sequence")
		}
	}
	return &res, nil
}

// existingKeys loads the keys in use into a bloom filter. A filter hit
// is confirmed against the store before an order is skipped.
func (i *Importer) existingKeys(ctx context.Context) (*bloom.BloomFilter, error) {
	numbers, pids, err := i.store.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load existing keys")
	}

	filter := bloom.NewWithEstimates(uint(max(2*(len(numbers)+len(pids)), minBloomSize)), bloomFPR)
	for _, n := range numbers {
		filter.AddString(numberKey(n))
	}
	for _, p := range pids {
		filter.AddString(pidKey(p))
	}
	return filter, nil
}

// importRun holds the keys of one Import call. It is only used by the
// goroutine inserting orders.
type importRun struct {
	// filter holds the keys stored before the run plus those accepted since.
	filter *bloom.BloomFilter
	// accepted holds the keys accepted during the run. In a dry run nothing
	// is written, so the store cannot confirm these.
	accepted map[string]struct{}
}

func (r *importRun) keys(o *order.Order) []string {
	keys := []string{numberKey(o.OrderNumber)}
	if o.PersonalizationID != nil {
		keys = append(keys, pidKey(*o.PersonalizationID))
	}
	return keys
}

func (r *importRun) repeated(keys []string) bool {
	for _, k := range keys {
		if _, ok := r.accepted[k]; ok {
			return true
		}
	}
	return false
}

func (r *importRun) maybeStored(keys []string) bool {
	for _, k := range keys {
		if r.filter.TestString(k) {
			return true
		}
	}
	return false
}

func (r *importRun) accept(keys []string) {
	for _, k := range keys {
		r.accepted[k] = struct{}{}
		r.filter.AddString(k)
	}
}

func (i *Importer) insert(ctx context.Context, run *importRun, o *order.Order, res *ImportResult) error {
	res.Read++
	if n, ok := order.ParseOrderNumber(o.OrderNumber); ok && n > res.MaxNumber {
		res.MaxNumber = n
	}

	keys := run.keys(o)
	if run.repeated(keys) {
		res.Skipped++
		return nil
	}
	if run.maybeStored(keys) {
		taken, err := i.store.Exists(ctx, o.OrderNumber, o.PersonalizationID)
		if err != nil {
			return errors.Wrapf(err, "check %s", o.OrderNumber)
		}
		if taken {
			res.Skipped++
			return nil
		}
	}

	run.accept(keys)

	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if i.dryRun {
		res.Inserted++
		return nil
	}

	o.ID = 0
	if err := i.store.Insert(ctx, o); err != nil {
		var conflict *order.ConflictError
		if errors.As(err, &conflict) {
			res.Skipped++
			return nil
		}
		return errors.Wrapf(err, "insert %s", o.OrderNumber)
	}
	res.Inserted++
	return nil
}

func numberKey(n string) string { return "n:" + n }

func pidKey(p string) string { return "p:" + p }
