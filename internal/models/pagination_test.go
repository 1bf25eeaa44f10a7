package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Number: 1, Size: 1}, Page{Number: -4, Size: -1}.Normalize())
	assert.Equal(t, Page{Number: 2, Size: MaxPageSize}, Page{Number: 2, Size: 1000}.Normalize())
	assert.Equal(t, 40, Page{Number: 3, Size: 20}.Offset())
}

func TestNewPageResult(t *testing.T) {
	r := NewPageResult[int](nil, 41, Page{Number: 1, Size: 20})
	assert.NotNil(t, r.Items)
	assert.Equal(t, 3, r.TotalPages)

	empty := NewPageResult([]int{}, 0, Page{Number: 1, Size: 20})
	assert.Zero(t, empty.TotalPages)
}
