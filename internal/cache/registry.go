package cache

// Cache keys.
const (
	KeyHomeFlags   = "home:flags"
	KeyLeaderboard = "leaderboard"
	KeyTags        = "tags"
	KeyFlagOfDay   = "flag-of-the-day"
)

// WriteKind names a mutation that can stale cached reads. Writers
// report what happened; the registry decides which keys to drop, so
// new read paths only need a registry entry instead of edits at every
// call site.
type WriteKind int

const (
	WriteFlagPublished WriteKind = iota
	WriteFlagEdited
	WriteFlagDeleted
	WriteTagsChanged
	WriteLeaderboardCredited
	WriteFlagOfDayPicked
	WriteFavoriteToggled
)

var affectedKeys = map[WriteKind][]string{
	WriteFlagPublished:       {KeyHomeFlags, KeyFlagOfDay},
	WriteFlagEdited:          {KeyHomeFlags, KeyFlagOfDay},
	WriteFlagDeleted:         {KeyHomeFlags, KeyFlagOfDay, KeyTags},
	WriteTagsChanged:         {KeyTags},
	WriteLeaderboardCredited: {KeyLeaderboard},
	WriteFlagOfDayPicked:     {KeyFlagOfDay},
	WriteFavoriteToggled:     {KeyHomeFlags},
}

// Invalidate drops every cache key affected by the given writes.
func (c *Cache) Invalidate(kinds ...WriteKind) {
	seen := make(map[string]struct{})
	var keys []string
	for _, kind := range kinds {
		for _, key := range affectedKeys[kind] {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		c.Del(keys...)
	}
}
