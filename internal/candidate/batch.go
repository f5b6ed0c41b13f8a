package candidate

import (
	"sort"
)

// Batch is the candidate table of one analysis run.
type Batch struct {
	Items []*Record
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Find returns the record evaluated from the given resume file.
func (b *Batch) Find(resumeFile string) *Record {
	if b == nil {
		return nil
	}
	for _, r := range b.Items {
		if r.ResumeFile == resumeFile {
			return r
		}
	}
	return nil
}

// ByVerdict returns the records carrying the verdict, in batch order.
func (b *Batch) ByVerdict(v Verdict) []*Record {
	if b == nil {
		return nil
	}
	result := make([]*Record, 0)
	for _, r := range b.Items {
		if r.Verdict == v {
			result = append(result, r)
		}
	}
	return result
}

// MissingContact returns records that lack an email or phone, whatever their verdict.
func (b *Batch) MissingContact() []*Record {
	if b == nil {
		return nil
	}
	result := make([]*Record, 0)
	for _, r := range b.Items {
		if !Known(r.Email) || !Known(r.Phone) {
			result = append(result, r)
		}
	}
	return result
}

// Flagged returns records with detected fraud.
func (b *Batch) Flagged() []*Record {
	if b == nil {
		return nil
	}
	result := make([]*Record, 0)
	for _, r := range b.Items {
		if r.FraudDetected {
			result = append(result, r)
		}
	}
	return result
}

// Counts returns the number of records per verdict.
func (b *Batch) Counts() map[Verdict]int {
	counts := make(map[Verdict]int, 3)
	for _, v := range Verdicts() {
		counts[v] = 0
	}
	if b == nil {
		return counts
	}
	for _, r := range b.Items {
		counts[r.Verdict]++
	}
	return counts
}

// Ranked returns the records ordered by score descending. Equal scores keep batch order.
func (b *Batch) Ranked() []*Record {
	if b == nil {
		return nil
	}
	ranked := make([]*Record, len(b.Items))
	copy(ranked, b.Items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Order < ranked[j].Order
	})
	return ranked
}
