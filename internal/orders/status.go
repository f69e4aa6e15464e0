package orders

import "sort"

// DeriveItemStatus computes the aggregate item status from its sections. It
// is the only place the section-to-item rule lives; every handler that
// touches a section calls it before persisting. recorded is returned when no
// rule applies, so an item never regresses to an unrelated status.
func DeriveItemStatus(sections map[string]*SectionStatus, recorded ItemStatus) ItemStatus {
	if len(sections) == 0 {
		return recorded
	}
	var (
		total, completed, readyProd int
		active, held, readyDye      int
		pendingCheck, awaitingMat   int
	)
	for _, sec := range sections {
		if sec == nil {
			continue
		}
		total++
		switch sec.Status {
		case SectionDyeingCompleted:
			completed++
		case SectionReadyForProduction:
			readyProd++
		case SectionReadyForDyeing:
			readyDye++
			active++
		case SectionDyeingAccepted, SectionDyeingInProgress:
			held++
			active++
		case SectionPendingInventoryCheck:
			pendingCheck++
		case SectionAwaitingMaterial:
			awaitingMat++
		}
	}
	if total == 0 {
		return recorded
	}
	done := completed + readyProd
	switch {
	case done == total && completed > 0:
		return ItemDyeingCompleted
	case readyProd == total:
		return ItemReadyForProduction
	case active == total && held > 0:
		return ItemInDyeing
	case active+done == total && done > 0:
		return ItemInDyeing
	case active+done > 0 && active+done < total:
		return ItemPartiallyInDyeing
	case readyDye == total:
		return ItemReadyForDyeing
	case pendingCheck == total:
		return ItemInventoryCheck
	case pendingCheck+awaitingMat == total && awaitingMat > 0:
		return ItemAwaitingMaterial
	default:
		return recorded
	}
}

// RollupOrderStatus derives the order status from its items. Cancelled items
// are ignored unless every item is cancelled.
func RollupOrderStatus(items []Item, recorded OrderStatus) OrderStatus {
	if recorded == OrderCancelled || len(items) == 0 {
		return recorded
	}
	var live, dispatched, completed, ready, started int
	for _, it := range items {
		if it.Status == ItemCancelled {
			continue
		}
		live++
		switch it.Status {
		case ItemCompleted:
			completed++
		case ItemDispatched:
			dispatched++
		case ItemReadyForDispatch:
			ready++
		}
		switch it.Status {
		case ItemReceived, ItemFabricationBespoke, ItemInventoryCheck:
		default:
			started++
		}
	}
	switch {
	case live == 0:
		return OrderCancelled
	case completed == live:
		return OrderCompleted
	case completed+dispatched == live:
		return OrderDispatched
	case completed+dispatched+ready == live:
		return OrderReadyForDispatch
	case started > 0:
		return OrderInProgress
	default:
		return recorded
	}
}

func sortedKeys(m map[string]*SectionStatus) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
