package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryCondition(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantSQL  string
		wantArgs []interface{}
	}{
		{"equal", Equal("doctor_id", "doc-1"), "doctor_id = ?", []interface{}{"doc-1"}},
		{"not equal", NotEqual("status", "Cancelled"), "status <> ?", []interface{}{"Cancelled"}},
		{"greater than", GreaterThan("reschedule_count", 0), "reschedule_count > ?", []interface{}{0}},
		{"greater or equal", GreaterThanEqual("reschedule_count", 1), "reschedule_count >= ?", []interface{}{1}},
		{"less than", LessThan("reschedule_count", 3), "reschedule_count < ?", []interface{}{3}},
		{"less or equal", LessThanEqual("reschedule_count", 3), "reschedule_count <= ?", []interface{}{3}},
		{
			"or group",
			Or(Equal("status", "Booked"), Equal("status", "Confirmed")),
			"(status = ? OR status = ?)",
			[]interface{}{"Booked", "Confirmed"},
		},
		{"empty or group", Or(), "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.query.condition()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestQueryIsFilter(t *testing.T) {
	assert.True(t, Equal("a", 1).IsFilter())
	assert.True(t, NotEqual("a", 1).IsFilter())
	assert.True(t, Or(Equal("a", 1)).IsFilter())
	assert.False(t, OrderAsc("a").IsFilter())
	assert.False(t, OrderDesc("a").IsFilter())
	assert.False(t, Limit(1).IsFilter())
	assert.False(t, Offset(1).IsFilter())
}
