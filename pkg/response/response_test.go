package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	raw, err := json.Marshal(Success(200, map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","status_code":200,"data":{"n":1}}`, string(raw))

	raw, err = json.Marshal(Error(409, "Change request already finalized."))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":409,"error":"Change request already finalized."}`, string(raw))

	raw, err = json.Marshal(SuccessWithPagination(200, []string{"a"}, 7, 2, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","status_code":200,"data":{"items":["a"],"total":7,"page":2,"limit":1}}`, string(raw))
}
