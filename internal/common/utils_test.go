package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Flu Shots", "flu"))
	assert.True(t, ContainsFold("Blood Pressure", "PRESS"))
	assert.True(t, ContainsFold("anything", ""))
	assert.False(t, ContainsFold("Flu Shots", "dental"))
}

func TestAnyContainsFold(t *testing.T) {
	services := []string{"Flu Shots", "Blood Pressure"}
	assert.True(t, AnyContainsFold(services, "blood"))
	assert.False(t, AnyContainsFold(services, "vision"))
	assert.False(t, AnyContainsFold(nil, "flu"))
}

func TestFoldSpace(t *testing.T) {
	assert.Equal(t, "9 lost rd", FoldSpace("  9  Lost\tRd "))
	assert.Equal(t, FoldSpace("9 Lost Rd"), FoldSpace("9  LOST rd"))
	assert.Equal(t, "", FoldSpace(" \n "))
}
