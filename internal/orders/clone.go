package orders

import "time"

// Clone returns a deep copy of the item so callers can stage mutations
// without touching shared state.
func (it Item) Clone() Item {
	out := it
	if it.SectionStatuses != nil {
		out.SectionStatuses = make(map[string]*SectionStatus, len(it.SectionStatuses))
		for name, sec := range it.SectionStatuses {
			if sec == nil {
				out.SectionStatuses[name] = nil
				continue
			}
			cp := sec.Clone()
			out.SectionStatuses[name] = &cp
		}
	}
	if it.CustomBOM != nil {
		bom := *it.CustomBOM
		bom.Items = append([]MaterialRequirement(nil), it.CustomBOM.Items...)
		out.CustomBOM = &bom
	}
	out.MaterialRequirements = append([]MaterialRequirement(nil), it.MaterialRequirements...)
	out.Timeline = append([]TimelineEntry(nil), it.Timeline...)
	out.ProductionStartedAt = cloneTime(it.ProductionStartedAt)
	out.ProductionCompletedAt = cloneTime(it.ProductionCompletedAt)
	out.QAReviewedAt = cloneTime(it.QAReviewedAt)
	out.DispatchedAt = cloneTime(it.DispatchedAt)
	out.CompletedAt = cloneTime(it.CompletedAt)
	return out
}

// Clone returns a deep copy of the section record.
func (s SectionStatus) Clone() SectionStatus {
	out := s
	out.DyeingAcceptedAt = cloneTime(s.DyeingAcceptedAt)
	out.DyeingStartedAt = cloneTime(s.DyeingStartedAt)
	out.DyeingCompletedAt = cloneTime(s.DyeingCompletedAt)
	out.DyeingRejectedAt = cloneTime(s.DyeingRejectedAt)
	out.ReservedMaterials = append([]ReservedMaterial(nil), s.ReservedMaterials...)
	if s.InventoryCheckResult != nil {
		res := *s.InventoryCheckResult
		res.Shortages = append([]MaterialShortage(nil), s.InventoryCheckResult.Shortages...)
		out.InventoryCheckResult = &res
	}
	return out
}

// Clone returns a deep copy of the order including its items.
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]Item, len(o.Items))
		for i, it := range o.Items {
			out.Items[i] = it.Clone()
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
