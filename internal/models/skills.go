package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// SkillsFromCSV turns a comma-separated skill string into a JSON column
// value. Blank entries are dropped.
func SkillsFromCSV(csv string) datatypes.JSON {
	parts := strings.Split(csv, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			skills = append(skills, s)
		}
	}
	return SkillsJSON(skills)
}

func SkillsJSON(skills []string) datatypes.JSON {
	if skills == nil {
		skills = []string{}
	}
	b, _ := json.Marshal(skills)
	return datatypes.JSON(b)
}
