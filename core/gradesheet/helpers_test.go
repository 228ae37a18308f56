package gradesheet

func score(id string, max float64) Column {
	return Column{ID: id, Name: id, MaxScore: max, Kind: KindScore}
}

func label(id string) Column {
	return Column{ID: id, Name: id, MaxScore: 99, Kind: KindLabel}
}

func internalSum(id string, ids ...string) Column {
	return Column{ID: id, Name: id, Kind: KindGroupInternalSum, InternalSourceColumnIDs: ids}
}

func externalSum(id string, keys ...string) Column {
	return Column{ID: id, Name: id, Kind: KindExternalSum, ExternalSourceKeys: keys}
}

func groupSum(id string, keys ...string) Column {
	return Column{ID: id, Name: id, Kind: KindGroupSum, GroupSourceKeys: keys}
}

func grandTotal(id string, internal []string, keys ...string) Column {
	return Column{ID: id, Name: id, Kind: KindGrandTotal, InternalSourceColumnIDs: internal, GroupSourceKeys: keys}
}

func group(id string, cols ...Column) Group {
	return Group{ID: id, Name: id, Columns: cols}
}

func structure(groups ...Group) Structure {
	return Structure{Groups: groups}
}

// sample:
//
//	A: a1 = 5, a2 = 10, a-total = a1 + a2 = 15
//	B: b1 = 20, b-sum = A:a-total = 15, b-grand = A:a-total + b1 = 35
func sample() Structure {
	return structure(
		group("A", score("a1", 5), score("a2", 10), internalSum("a-total", "a1", "a2")),
		group("B", score("b1", 20), groupSum("b-sum", "A:a-total"), grandTotal("b-grand", []string{"b1"}, "A:a-total")),
	)
}
