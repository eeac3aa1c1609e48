package scoring

// KeyIELTSListening is the registry key of the academic/general listening scale.
const KeyIELTSListening = "ielts.listening"

// BandRow maps an inclusive range of correct answers to a band.
type BandRow struct {
	Min, Max int
	Band     float64
}

// BandTable is an ordered step table checked from the top row down.
// Counts above the first row's Max clamp to Ceiling; counts below the last
// row's Min fall to Floor.
type BandTable struct {
	Rows    []BandRow
	Ceiling float64
	Floor   float64
	Full    int
}

// IELTSListening is the 40-question listening conversion table.
var IELTSListening = BandTable{
	Rows: []BandRow{
		{39, 40, 9.0},
		{37, 38, 8.5},
		{35, 36, 8.0},
		{32, 34, 7.5},
		{30, 31, 7.0},
		{26, 29, 6.5},
		{23, 25, 6.0},
		{18, 22, 5.5},
		{16, 17, 5.0},
		{13, 15, 4.5},
		{11, 12, 4.0},
	},
	Ceiling: 9.0,
	Floor:   3.5,
	Full:    40,
}

func init() {
	Register(KeyIELTSListening, IELTSListening)
}

// BandScoreFor returns the band for a raw correct count.
func (t BandTable) BandScoreFor(correct int) float64 {
	if len(t.Rows) > 0 && correct > t.Rows[0].Max {
		return t.Ceiling
	}
	for _, r := range t.Rows {
		if correct >= r.Min && correct <= r.Max {
			return r.Band
		}
	}
	return t.Floor
}

func (t BandTable) FullLength() int { return t.Full }

// BandScoreFor is shorthand for IELTSListening.BandScoreFor.
func BandScoreFor(correct int) float64 { return IELTSListening.BandScoreFor(correct) }
