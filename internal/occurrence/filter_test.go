package occurrence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(species *string, date *string, lat, lon *float64) Record {
	return Record{GBIFID: 1, Species: species, EventDate: date, Latitude: lat, Longitude: lon}
}

func TestMetricsFilterAdmit(t *testing.T) {
	t.Parallel()

	f := MetricsFilter{Years: DefaultYearWindow}
	tests := []struct {
		name   string
		record Record
		want   Reason
	}{
		{"valid", rec(Str("Pipistrellus pipistrellus"), Str("1987-06-14"), F64(51.5), F64(-0.1)), Admitted},
		{"missing latitude", rec(Str("Myotis"), Str("1987"), nil, F64(0)), ReasonMissingCoordinates},
		{"missing longitude", rec(Str("Myotis"), Str("1987"), F64(0), nil), ReasonMissingCoordinates},
		{"latitude out of range", rec(Str("Myotis"), Str("1987"), F64(91), F64(0)), ReasonCoordinatesRange},
		{"longitude out of range", rec(Str("Myotis"), Str("1987"), F64(0), F64(-181)), ReasonCoordinatesRange},
		{"boundary coordinates", rec(Str("Myotis"), Str("1987"), F64(-90), F64(180)), Admitted},
		{"null species", rec(nil, Str("1987"), F64(0), F64(0)), ReasonMissingSpecies},
		{"empty species", rec(Str("  "), Str("1987"), F64(0), F64(0)), ReasonMissingSpecies},
		{"unidentified bat", rec(Str("Unidentified bat"), Str("1987"), F64(0), F64(0)), ReasonUnidentified},
		{"lowercase unidentified", rec(Str("unidentified Myotis"), Str("1987"), F64(0), F64(0)), ReasonUnidentified},
		{"upper case is not matched", rec(Str("UNIDENTIFIED"), Str("1987"), F64(0), F64(0)), Admitted},
		{"null date", rec(Str("Myotis"), nil, F64(0), F64(0)), ReasonMissingEventDate},
		{"garbage date", rec(Str("Myotis"), Str("summer"), F64(0), F64(0)), ReasonUnparseableDate},
		{"year before window", rec(Str("Myotis"), Str("1959-12-31"), F64(0), F64(0)), ReasonYearOutOfRange},
		{"year after window", rec(Str("Myotis"), Str("2027-01-01"), F64(0), F64(0)), ReasonYearOutOfRange},
		{"first year of window", rec(Str("Myotis"), Str("1960-01-01"), F64(0), F64(0)), Admitted},
		{"last year of window", rec(Str("Myotis"), Str("2026-12-31"), F64(0), F64(0)), Admitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := f.Admit(tt.record)
			assert.Equal(t, tt.want, reason)
			if tt.want == Admitted {
				assert.Equal(t, *tt.record.Species, got.Species)
				assert.Equal(t, *tt.record.Latitude, got.Latitude)
			} else {
				assert.Equal(t, Filtered{}, got)
			}
		})
	}
}

func TestMetricsFilterYear(t *testing.T) {
	t.Parallel()

	got, reason := MetricsFilter{Years: DefaultYearWindow}.
		Admit(rec(Str("Myotis daubentonii"), Str("1988-05-02T22:10:00"), F64(60.1), F64(24.9)))
	require.Equal(t, Admitted, reason)
	assert.Equal(t, 1988, got.Year)
}

func TestPointFilterKeepsSpeciesless(t *testing.T) {
	t.Parallel()

	f := PointFilter{Years: DefaultYearWindow}

	p, reason := f.Admit(Record{
		GBIFID:     42,
		SpeciesKey: I64(2432439),
		EventDate:  Str("2001-07-01"),
		Latitude:   F64(38.7),
		Longitude:  F64(-9.1),
	})
	require.Equal(t, Admitted, reason)
	assert.Nil(t, p.Species)
	assert.Equal(t, int64(42), p.GBIFID)
	assert.Equal(t, 2001, p.Year)

	p, reason = f.Admit(rec(Str("Unidentified bat"), Str("2001"), F64(0), F64(0)))
	require.Equal(t, Admitted, reason)
	assert.Equal(t, "Unidentified bat", *p.Species)

	_, reason = f.Admit(rec(nil, Str("1901"), F64(0), F64(0)))
	assert.Equal(t, ReasonYearOutOfRange, reason)

	_, reason = f.Admit(rec(nil, Str("2001"), nil, F64(0)))
	assert.Equal(t, ReasonMissingCoordinates, reason)
}

func TestRejectionStats(t *testing.T) {
	t.Parallel()

	stats := NewRejectionStats()
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				stats.Record(ReasonUnidentified)
				stats.Record(Admitted)
			}
		})
	}
	wg.Wait()

	other := NewRejectionStats()
	other.Record(ReasonMissingSpecies)
	stats.Merge(other)

	assert.Equal(t, int64(800), stats.Count(ReasonUnidentified))
	assert.Equal(t, int64(1), stats.Count(ReasonMissingSpecies))
	assert.Equal(t, int64(801), stats.Total())
	assert.Len(t, stats.Snapshot(), 2)
}
