package download

// Segment is one contiguous byte range of the transfer. Start and End are
// inclusive, matching the HTTP Range header.
type Segment struct {
	Index int
	Start int64
	End   int64
}

// Length returns the segment size in bytes.
func (s Segment) Length() int64 {
	return s.End - s.Start + 1
}

// planSegments splits size bytes into at most maxSegments ranges of at
// least minSize bytes each. Files smaller than two minimum segments come
// back as a single range.
func planSegments(size int64, maxSegments int, minSize int64) []Segment {
	if maxSegments < 1 {
		maxSegments = 1
	}
	if minSize < 1 {
		minSize = 1
	}

	count := int(size / minSize)
	if count > maxSegments {
		count = maxSegments
	}
	if count < 1 {
		count = 1
	}

	segmentSize := size / int64(count)
	segments := make([]Segment, 0, count)

	var offset int64
	for i := 0; i < count; i++ {
		end := offset + segmentSize - 1
		if i == count-1 {
			end = size - 1 // last segment absorbs the remainder
		}
		segments = append(segments, Segment{Index: i, Start: offset, End: end})
		offset = end + 1
	}

	return segments
}
