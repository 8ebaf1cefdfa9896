// Package aggregate groups keyed occurrence records per (cell, block,
// species) and per (cell, block), and accumulates per-cell centroids.
//
// Counting is commutative, so partial aggregates built over disjoint
// shards of the input merge into the same result as a single pass,
// regardless of record order or shard count.
package aggregate

import (
	"cmp"
	"slices"
)

// Key identifies a bin: one spatial cell in one temporal block.
type Key struct {
	CellID     int64
	BlockStart int
}

// Compare orders keys by cell id, then block start.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.CellID, o.CellID); c != 0 {
		return c
	}
	return cmp.Compare(k.BlockStart, o.BlockStart)
}

// KeyedRecord is an admitted record after cell and block assignment.
type KeyedRecord struct {
	Key       Key
	Species   string
	Latitude  float64
	Longitude float64
}

// SpeciesCount is the number of records of one species in one bin. N >= 1.
type SpeciesCount struct {
	Key     Key
	Species string
	N       int
}

// BlockTotal is the number of records in one bin, the sum of its species
// counts.
type BlockTotal struct {
	Key          Key
	TotalRecords int
}

// Bin is one block total together with its species counts.
type Bin struct {
	Total   BlockTotal
	Species []SpeciesCount
}

// Centroid is the mean position of all records in a cell across every
// block.
type Centroid struct {
	Lat float64
	Lon float64
	N   int
}

// Result is the outcome of aggregation. Species is sorted by key then
// species name, Totals by key.
type Result struct {
	Species   []SpeciesCount
	Totals    []BlockTotal
	Centroids map[int64]Centroid
}

// Bins pairs each block total with its species counts, in key order.
func (r Result) Bins() []Bin {
	bins := make([]Bin, 0, len(r.Totals))
	i := 0
	for _, total := range r.Totals {
		start := i
		for i < len(r.Species) && r.Species[i].Key == total.Key {
			i++
		}
		bins = append(bins, Bin{Total: total, Species: r.Species[start:i]})
	}
	return bins
}

type speciesKey struct {
	key     Key
	species string
}

// cellCoords keeps every coordinate of a cell so the centroid can be
// summed in sorted order, independent of record and shard order.
type cellCoords struct {
	lats, lons []float64
}

// Partial is an in-progress aggregate. A Partial is not safe for
// concurrent use; give each worker its own and Merge them.
type Partial struct {
	species map[speciesKey]int
	cells   map[int64]*cellCoords
}

// NewPartial returns an empty Partial.
func NewPartial() *Partial {
	return &Partial{
		species: make(map[speciesKey]int),
		cells:   make(map[int64]*cellCoords),
	}
}

// Add counts one record.
func (p *Partial) Add(r KeyedRecord) {
	p.species[speciesKey{key: r.Key, species: r.Species}]++

	c, ok := p.cells[r.Key.CellID]
	if !ok {
		c = &cellCoords{}
		p.cells[r.Key.CellID] = c
	}
	c.lats = append(c.lats, r.Latitude)
	c.lons = append(c.lons, r.Longitude)
}

// Merge adds other's counts into p. other is left unchanged.
func (p *Partial) Merge(other *Partial) {
	for k, n := range other.species {
		p.species[k] += n
	}
	for id, o := range other.cells {
		c, ok := p.cells[id]
		if !ok {
			c = &cellCoords{}
			p.cells[id] = c
		}
		c.lats = append(c.lats, o.lats...)
		c.lons = append(c.lons, o.lons...)
	}
}

// Len returns the number of distinct (cell, block, species) groups.
func (p *Partial) Len() int {
	return len(p.species)
}

// Result materializes the grouped counts. Totals are derived from the
// species counts, so TotalRecords equals the sum of N for every bin.
func (p *Partial) Result() Result {
	species := make([]SpeciesCount, 0, len(p.species))
	for k, n := range p.species {
		species = append(species, SpeciesCount{Key: k.key, Species: k.species, N: n})
	}
	slices.SortFunc(species, func(a, b SpeciesCount) int {
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Species, b.Species)
	})

	var totals []BlockTotal
	for _, sc := range species {
		if n := len(totals); n > 0 && totals[n-1].Key == sc.Key {
			totals[n-1].TotalRecords += sc.N
			continue
		}
		totals = append(totals, BlockTotal{Key: sc.Key, TotalRecords: sc.N})
	}

	centroids := make(map[int64]Centroid, len(p.cells))
	for id, c := range p.cells {
		centroids[id] = Centroid{
			Lat: sortedMean(c.lats),
			Lon: sortedMean(c.lons),
			N:   len(c.lats),
		}
	}

	return Result{Species: species, Totals: totals, Centroids: centroids}
}

// Aggregate groups records in a single pass.
func Aggregate(records []KeyedRecord) Result {
	p := NewPartial()
	for i := range records {
		p.Add(records[i])
	}
	return p.Result()
}

// sortedMean sorts xs in place and returns its mean,, summed as offsets
// from the smallest value.
func sortedMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	slices.Sort(xs)
	base := xs[0]
	var sum float64
	for _, x := range xs {
		sum += x - base
	}
	return base + sum/float64(len(xs))
}
