package models

// AppendAttachments returns existing followed by added. It never removes or
// deduplicates references and never writes into the backing array of existing.
func AppendAttachments(existing, added []string) []string {
	merged := make([]string, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)
	return merged
}

// AddPhotos appends attachment references to the order's ledger
func (o *Order) AddPhotos(refs ...string) {
	if len(refs) == 0 && o.Photos != nil {
		return
	}
	o.Photos = AppendAttachments(o.Photos, refs)
}
