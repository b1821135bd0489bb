package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleOverlaps(t *testing.T) {
	base := Schedule{Days: []string{"Mon", "Wed"}, Start: "10:00", End: "11:15"}

	colliding := Schedule{Days: []string{"Mon"}, Start: "10:30", End: "11:30"}
	assert.True(t, base.Overlaps(colliding))
	assert.True(t, colliding.Overlaps(base))

	differentDays := Schedule{Days: []string{"Tue", "Thu"}, Start: "10:00", End: "11:15"}
	assert.False(t, base.Overlaps(differentDays))

	backToBack := Schedule{Days: []string{"Mon"}, Start: "11:15", End: "12:30"}
	assert.False(t, base.Overlaps(backToBack))

	empty := Schedule{}
	assert.False(t, base.Overlaps(empty))
	assert.False(t, empty.Overlaps(base))
}

func TestScheduleOverlapsMalformedTime(t *testing.T) {
	base := Schedule{Days: []string{"Mon"}, Start: "10:00", End: "11:15"}

	// A corrupt meeting time on a shared day counts as a conflict.
	corrupt := Schedule{Days: []string{"Mon"}, Start: "25:99", End: "garbage"}
	assert.True(t, base.Overlaps(corrupt))
	assert.True(t, corrupt.Overlaps(base))

	// Disjoint days never conflict, corrupt times or not.
	otherDay := Schedule{Days: []string{"Tue"}, Start: "25:99", End: "garbage"}
	assert.False(t, base.Overlaps(otherDay))
}

func TestScheduleScanRoundTrip(t *testing.T) {
	s := Schedule{Days: []string{"Fri"}, Start: "09:00", End: "09:50"}
	raw, err := s.Value()
	assert.NoError(t, err)

	var decoded Schedule
	assert.NoError(t, decoded.Scan(raw))
	assert.Equal(t, s, decoded)

	assert.NoError(t, decoded.Scan(nil))
	assert.Empty(t, decoded.Days)
}
