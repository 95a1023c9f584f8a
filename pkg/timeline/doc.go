// Package timeline persists account timelines as canonical JSON files.
//
// A timeline is an ordered collection of Entry values keyed by their integer
// id. The package handles:
//   - Loading a stored collection (a missing file is an empty collection)
//   - Merging stored and fetched collections into a union by id
//   - Saving with recursively sorted keys so repeated saves of the same data
//     produce byte-identical files
//
// Usage:
//
//	store, err := timeline.NewStore("./data")
//	if err != nil {
//	    return err
//	}
//
//	existing, err := store.Load(accountID)
//	if err != nil {
//	    return err
//	}
//	merged := store.Merge(existing, fetched)
//	if err := store.Save(accountID, merged); err != nil {
//	    return err
//	}
package timeline
