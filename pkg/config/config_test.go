package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriorityRules(t *testing.T) {
	rules := parsePriorityRules("combat=3,critical_story=3,matrix=2,npc_action=2")

	assert.Equal(t, 3, rules["combat"])
	assert.Equal(t, 3, rules["critical_story"])
	assert.Equal(t, 2, rules["matrix"])
	assert.Equal(t, 2, rules["npc_action"])
}

func TestParsePriorityRulesSkipsMalformed(t *testing.T) {
	rules := parsePriorityRules("combat=3, matrix = 2 ,broken,=1,story=nope,loud=9")

	assert.Equal(t, 3, rules["combat"])
	assert.Equal(t, 2, rules["matrix"])
	assert.NotContains(t, rules, "broken")
	assert.NotContains(t, rules, "story")
	assert.NotContains(t, rules, "loud")
	assert.Len(t, rules, 2)
}

func TestParsePriorityRulesEmpty(t *testing.T) {
	assert.Empty(t, parsePriorityRules(""))
}
