package affinity

// Level thresholds as a fraction of max affinity, highest first.
var levelThresholds = []struct {
	level int
	ratio float64
}{
	{7, 0.85},
	{6, 0.70},
	{5, 0.50},
	{4, 0.30},
	{3, 0.20},
	{2, 0.10},
}

var levelNames = map[int]string{
	1: "stranger",
	2: "acquaintance",
	3: "familiar",
	4: "friend",
	5: "close friend",
	6: "confidant",
	7: "soulmate",
}

const (
	MinLevel = 1
	MaxLevel = 7
)

// LevelFor derives the level from affinity and max affinity.
func LevelFor(affinity, maxAffinity int) int {
	if maxAffinity <= 0 {
		return MinLevel
	}
	ratio := float64(affinity) / float64(maxAffinity)
	for _, t := range levelThresholds {
		if ratio >= t.ratio {
			return t.level
		}
	}
	return MinLevel
}

// LevelName returns the display name for a level.
func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return levelNames[MinLevel]
}
