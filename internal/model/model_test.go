package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d, err := ParseDate("2020-09-01")
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		D Date `json:"d"`
	}{D: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2020-09-01"}`, string(data))

	var out struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2021-03-15"}`), &out))
	assert.Equal(t, "2021-03-15", out.D.String())

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &out))
	assert.True(t, out.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"15/03/2021"}`), &out))
}

func TestDate_ZeroIsNull(t *testing.T) {
	var d Date
	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
	assert.Equal(t, "", d.String())
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "time", input: time.Date(2019, 5, 4, 13, 0, 0, 0, time.Local), want: "2019-05-04"},
		{name: "bytes", input: []byte("2018-01-02"), want: "2018-01-02"},
		{name: "带时间的字符串", input: "2018-01-02T00:00:00Z", want: "2018-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.input))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestClub_Helpers(t *testing.T) {
	c := &Club{Status: StatusActive}
	assert.True(t, c.IsActive())

	c.SetCampus("")
	assert.Nil(t, c.Campus)
	assert.Equal(t, "", c.CampusValue())

	c.SetCampus("东校区")
	assert.Equal(t, "东校区", c.CampusValue())

	assert.Nil(t, c.TagList())
	c.Tags = JoinTags([]string{"编程", "开源"})
	assert.Equal(t, "编程,开源", c.Tags)
	assert.Equal(t, []string{"编程", "开源"}, c.TagList())
	assert.Equal(t, "", JoinTags(nil))
}
