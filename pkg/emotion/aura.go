package emotion

import "strings"

// Neutral is the aura used when a frame has no dominant category or the
// category is not in the table.
var Neutral = AuraColor{
	Primary:   "#9CA3AF",
	Secondary: "#D1D5DB",
	Accent:    "#F3F4F6",
	Intensity: 0.3,
	PulseRate: 0.5,
}

// auraTable is keyed by lowercase category name.
var auraTable = map[string]AuraColor{
	"joy":                    {"#FFD700", "#FFA500", "#FFF8DC", 0.9, 1.2},
	"happiness":              {"#FFD700", "#FFB347", "#FFFACD", 0.85, 1.1},
	"amusement":              {"#FFB347", "#FFD700", "#FFEFD5", 0.8, 1.4},
	"excitement":             {"#FF4500", "#FFD700", "#FFE4B5", 1.0, 2.0},
	"ecstasy":                {"#FF1493", "#FFD700", "#FFF0F5", 1.0, 2.2},
	"love":                   {"#FF69B4", "#FF1493", "#FFE4E1", 0.9, 0.9},
	"adoration":              {"#FF69B4", "#DB7093", "#FFF0F5", 0.85, 0.9},
	"romance":                {"#DB7093", "#C71585", "#FFE4E1", 0.8, 0.8},
	"contentment":            {"#98FB98", "#90EE90", "#F0FFF0", 0.6, 0.6},
	"satisfaction":           {"#90EE90", "#3CB371", "#F0FFF0", 0.65, 0.7},
	"calmness":               {"#87CEEB", "#B0E0E6", "#F0F8FF", 0.5, 0.4},
	"relief":                 {"#AFEEEE", "#87CEEB", "#F0FFFF", 0.55, 0.5},
	"serenity":               {"#B0E0E6", "#ADD8E6", "#F0F8FF", 0.45, 0.3},
	"interest":               {"#40E0D0", "#48D1CC", "#E0FFFF", 0.7, 1.0},
	"curiosity":              {"#00CED1", "#40E0D0", "#E0FFFF", 0.7, 1.1},
	"concentration":          {"#4682B4", "#5F9EA0", "#E6F0FA", 0.6, 0.7},
	"determination":          {"#B22222", "#FF8C00", "#FFE4C4", 0.85, 1.3},
	"pride":                  {"#9932CC", "#FFD700", "#F8F0FF", 0.8, 1.0},
	"triumph":                {"#FFD700", "#9932CC", "#FFFACD", 0.95, 1.6},
	"admiration":             {"#BA55D3", "#DDA0DD", "#F8F0FF", 0.75, 0.9},
	"awe":                    {"#6A5ACD", "#9370DB", "#F0F0FF", 0.85, 0.8},
	"aesthetic appreciation": {"#DA70D6", "#EE82EE", "#FFF0FF", 0.7, 0.7},
	"surprise":               {"#FF00FF", "#FFD700", "#FFF0FF", 0.9, 1.8},
	"realization":            {"#FFFF66", "#FFD700", "#FFFFE0", 0.75, 1.3},
	"confusion":              {"#DDA0DD", "#D8BFD8", "#FFF0FF", 0.6, 1.1},
	"doubt":                  {"#BC8F8F", "#D8BFD8", "#FAF0F0", 0.5, 0.8},
	"contemplation":          {"#708090", "#B0C4DE", "#F0F4F8", 0.5, 0.5},
	"nostalgia":              {"#D2B48C", "#DEB887", "#FAF0E6", 0.55, 0.5},
	"boredom":                {"#A9A9A9", "#C0C0C0", "#F5F5F5", 0.3, 0.3},
	"tiredness":              {"#778899", "#A9A9A9", "#F0F0F0", 0.3, 0.25},
	"sadness":                {"#4169E1", "#1E3A8A", "#E6E6FA", 0.7, 0.4},
	"disappointment":         {"#6495ED", "#4169E1", "#E6E6FA", 0.6, 0.5},
	"empathic pain":          {"#483D8B", "#6A5ACD", "#E6E6FA", 0.65, 0.5},
	"sympathy":               {"#7B68EE", "#9370DB", "#F0F0FF", 0.6, 0.6},
	"guilt":                  {"#556B2F", "#6B8E23", "#F5F5DC", 0.55, 0.6},
	"shame":                  {"#8B4513", "#A0522D", "#FAEBD7", 0.55, 0.6},
	"embarrassment":          {"#FA8072", "#F08080", "#FFF0F0", 0.6, 1.0},
	"awkwardness":            {"#E9967A", "#F4A460", "#FFF5EE", 0.5, 0.9},
	"anger":                  {"#DC143C", "#8B0000", "#FFE4E1", 1.0, 2.5},
	"contempt":               {"#8B0000", "#A52A2A", "#FAEBD7", 0.75, 1.2},
	"annoyance":              {"#FF6347", "#CD5C5C", "#FFE4E1", 0.7, 1.6},
	"fear":                   {"#4B0082", "#2F4F4F", "#E6E6FA", 0.85, 2.2},
	"horror":                 {"#2F0047", "#4B0082", "#D8BFD8", 1.0, 2.8},
	"anxiety":                {"#8A2BE2", "#483D8B", "#E6E6FA", 0.8, 2.0},
	"distress":               {"#9400D3", "#4B0082", "#EEE0FF", 0.85, 2.1},
	"pain":                   {"#800000", "#B22222", "#FFE4E1", 0.9, 1.8},
	"disgust":                {"#556B2F", "#8B8000", "#F5F5DC", 0.75, 1.5},
	"envy":                   {"#228B22", "#006400", "#F0FFF0", 0.7, 1.2},
	"craving":                {"#FF7F50", "#FF6347", "#FFF5EE", 0.75, 1.3},
	"desire":                 {"#C71585", "#FF1493", "#FFF0F5", 0.8, 1.1},
	"entrancement":           {"#9370DB", "#BA55D3", "#F8F0FF", 0.7, 0.6},
	"neutral":                Neutral,
}

// AuraFor maps a frame to its aura color. The dominant category is looked
// up case-insensitively; a missing or unknown category yields Neutral. The
// table intensity is scaled by the frame confidence, or by 1 when the
// confidence is absent.
func AuraFor(f Frame) AuraColor {
	name := strings.ToLower(strings.TrimSpace(f.Dominant))
	if name == "" {
		return Neutral
	}
	color, ok := auraTable[name]
	if !ok {
		return Neutral
	}
	color.Intensity = clamp(color.Intensity*f.ConfidenceOr(1), 0, 1)
	return color
}

// EmotionToAura maps a frame to its aura color.
func (p *Processor) EmotionToAura(f Frame) AuraColor {
	return AuraFor(f)
}

// KnownCategories returns the categories with a dedicated aura color.
func KnownCategories() []string {
	names := make([]string, 0, len(auraTable))
	for name := range auraTable {
		names = append(names, name)
	}
	return names
}
