package checklist

// Update is the partial view of a checklist extracted from a second source.
// Only the fields the second source is authoritative for are present, so a
// merged entry keeps whatever the update cannot know about (identifier,
// scientific name).
type Update struct {
	Observers     []string
	ObserverCount int
	Protocol      *Protocol
	Entries       []EntryUpdate
}

// EntryUpdate is the partial view of a single entry carried by an Update.
type EntryUpdate struct {
	Species Species
	Count   int
	Comment string
	Details []Detail
}

// Merge reconciles a checklist with the partial view of the same record from
// a second source. The original is deep copied and never modified.
//
// The update wins wholesale on observer count and protocol. Observer lists
// are concatenated, not unioned: the two sources enumerate different subsets
// of the party, so duplicates across them are preserved intentionally.
//
// Entries are matched by species display name. A matched entry keeps its
// identifier and scientific name and takes the update's count, comment and
// breakdown; an unmatched update entry is appended as new. Entry order is
// original keys first, then newly introduced keys. Merge is not commutative.
//
// If the original carries two entries sharing a species name (legal for the
// discovery source, which keys entries by observation id) only one survives
// the keyed match. Whether that is the intended behavior is an open question
// inherited from the sources; it is reproduced here, not special cased.
func Merge(original *Checklist, update Update) *Checklist {
	result := original.Clone()

	result.Observers = append(result.Observers, update.Observers...)
	result.ObserverCount = update.ObserverCount
	result.Protocol = update.Protocol.Clone()

	byName := make(map[string]Entry, len(result.Entries))
	order := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		key := entry.Species.Name
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = entry
	}

	for _, upd := range update.Entries {
		key := upd.Species.Name
		entry, ok := byName[key]
		if !ok {
			order = append(order, key)
			entry = Entry{Species: upd.Species}
		}
		entry.Count = upd.Count
		entry.Comment = upd.Comment
		entry.Details = append([]Detail(nil), upd.Details...)
		byName[key] = entry
	}

	result.Entries = make([]Entry, 0, len(order))
	for _, key := range order {
		result.Entries = append(result.Entries, byName[key])
	}
	return result
}
