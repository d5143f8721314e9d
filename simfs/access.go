package simfs

// accessConditions holds the three 4-bit access conditions decoded from a
// driver file-info response's raw access byte array (spec §4.2 phase 2).
type accessConditions struct {
	update       AccessCondition
	invalidate   AccessCondition
	rehabilitate AccessCondition
}

// decodeAccessConditions extracts update/rehabilitate/invalidate from the
// raw 3-byte access array exactly as the original driver packs it:
// update = access[0] & 0x0f, rehabilitate = (access[2] >> 4) & 0x0f,
// invalidate = access[2] & 0x0f.
func decodeAccessConditions(access [3]byte) accessConditions {
	return accessConditions{
		update:       normalizeAccessCondition(access[0] & 0x0f),
		rehabilitate: normalizeAccessCondition((access[2] >> 4) & 0x0f),
		invalidate:   normalizeAccessCondition(access[2] & 0x0f),
	}
}

// cacheable implements invariant I4: only EFs whose update, invalidate, and
// rehabilitate access conditions are all ADM or NEVER may be cached.
func (ac accessConditions) cacheable() bool {
	return isADMOrNever(ac.update) && isADMOrNever(ac.invalidate) && isADMOrNever(ac.rehabilitate)
}

func isADMOrNever(c AccessCondition) bool {
	return c == AccessADM || c == AccessNever
}
