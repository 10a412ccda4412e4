package osmroad

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"

	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
)

func wayWithTags(tags ...[2]string) *osm.Way {
	w := &osm.Way{Nodes: osm.WayNodes{{ID: 1}, {ID: 2}}}
	for _, kv := range tags {
		w.Tags = append(w.Tags, osm.Tag{Key: kv[0], Value: kv[1]})
	}
	return w
}

func TestAcceptOsmWayRejectsFootway(t *testing.T) {
	w := wayWithTags([2]string{"highway", "footway"})
	assert.False(t, acceptOsmWay(w))
}

func TestAcceptOsmWayAcceptsPrimary(t *testing.T) {
	w := wayWithTags([2]string{"highway", "primary"})
	assert.True(t, acceptOsmWay(w))
}

func TestAcceptOsmWayRejectsMissingHighwayTag(t *testing.T) {
	w := wayWithTags([2]string{"name", "Some Street"})
	assert.False(t, acceptOsmWay(w))
}

func TestParseWayTagsFallsBackToRoadTypeMaxSpeed(t *testing.T) {
	w := wayWithTags([2]string{"highway", "residential"})
	wt := parseWayTags(w)
	assert.Equal(t, "residential", wt.roadType)
	assert.Equal(t, 30.0, wt.maxSpeed)
}

func TestParseWayTagsHonorsExplicitMaxspeed(t *testing.T) {
	w := wayWithTags([2]string{"highway", "residential"}, [2]string{"maxspeed", "40"})
	wt := parseWayTags(w)
	assert.Equal(t, 40.0, wt.maxSpeed)
}

func TestParseWayTagsHonorsDirectionalMaxspeed(t *testing.T) {
	w := wayWithTags([2]string{"highway", "residential"},
		[2]string{"maxspeed", "40"}, [2]string{"maxspeed:forward", "50"})
	wt := parseWayTags(w)
	assert.Equal(t, 50.0, wt.maxSpeedForward)
	assert.Equal(t, 40.0, wt.maxSpeedBackward)
}

func TestParseWayTagsDetectsReversedOneway(t *testing.T) {
	w := wayWithTags([2]string{"highway", "primary"}, [2]string{"oneway", "-1"})
	wt := parseWayTags(w)
	assert.True(t, wt.oneWay)
	assert.True(t, wt.reversedOneWay)
	assert.Equal(t, roadnetwork.DirectionBackward, wt.direction())
}

func TestParseWayTagsForwardOneway(t *testing.T) {
	w := wayWithTags([2]string{"highway", "primary"}, [2]string{"oneway", "yes"})
	wt := parseWayTags(w)
	assert.Equal(t, roadnetwork.DirectionForward, wt.direction())
}

func TestParseWayTagsDefaultsToBothDirections(t *testing.T) {
	w := wayWithTags([2]string{"highway", "primary"})
	wt := parseWayTags(w)
	assert.Equal(t, roadnetwork.DirectionBoth, wt.direction())
}

func TestParseWayTagsRestrictedBackwardVehicleAccess(t *testing.T) {
	w := wayWithTags([2]string{"highway", "primary"}, [2]string{"vehicle:backward", "no"})
	wt := parseWayTags(w)
	assert.Equal(t, roadnetwork.DirectionForward, wt.direction())
}

func TestParseWayTagsPriorityPenalizesMinorRoadsMore(t *testing.T) {
	motorway := parseWayTags(wayWithTags([2]string{"highway", "motorway"}))
	service := parseWayTags(wayWithTags([2]string{"highway", "service"}))
	assert.Less(t, motorway.priority, service.priority)
	assert.GreaterOrEqual(t, motorway.priority, 1.0)
	assert.GreaterOrEqual(t, service.priority, 1.0)
}

func TestIsRestrictedRecognizesAccessValues(t *testing.T) {
	assert.True(t, isRestricted("no"))
	assert.True(t, isRestricted("private"))
	assert.False(t, isRestricted("designated"))
}
