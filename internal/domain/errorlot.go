package domain

// ErrorLotRecord marks one production lot as defective on a given date.
type ErrorLotRecord struct {
	Date Date `json:"date"`
	// LotIndex is the column position of the lot slot in the source file.
	// The first slot after the date column is 1.
	LotIndex int    `json:"lot_index"`
	Process  string `json:"process"`
}

// ErrorProcessesByDate groups records into per-date process sets.
func ErrorProcessesByDate(records []ErrorLotRecord) map[Date]ProcessSet {
	byDate := make(map[Date]ProcessSet)
	for _, rec := range records {
		set, ok := byDate[rec.Date]
		if !ok {
			set = make(ProcessSet)
			byDate[rec.Date] = set
		}
		set.Add(rec.Process)
	}
	return byDate
}
