// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		delta    string
		finished bool
		isError  bool
		errText  string
	}{
		{name: "delta", data: `{"answer_delta":"Hi"}`, delta: "Hi"},
		{name: "finished", data: `{"finished":true}`, finished: true},
		{name: "done sentinel", data: "[DONE]", finished: true},
		{name: "done sentinel padded", data: " [DONE]\n", finished: true},
		{name: "bool error", data: `{"error":true,"error_message":"boom","finished":true}`, finished: true, isError: true, errText: "boom"},
		{name: "string error", data: `{"error":"缺少认证令牌"}`, isError: true, errText: "缺少认证令牌"},
		{name: "false error", data: `{"error":false,"answer_delta":"x"}`, delta: "x"},
		{name: "null error", data: `{"error":null}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.delta, p.AnswerDelta)
			assert.Equal(t, tc.finished, p.Finished)
			assert.Equal(t, tc.isError, p.IsError())
			if tc.isError {
				assert.Equal(t, tc.errText, p.ErrorText())
			}
		})
	}
}

func TestDecodePayload_Malformed(t *testing.T) {
	_, err := DecodePayload([]byte(`{"answer_delta":`))
	assert.ErrorIs(t, err, ErrProtocolParse)
	assert.Equal(t, ErrTypeProtocolParse, TypeOf(err))
}

func TestStreamURL(t *testing.T) {
	u, err := StreamURL("http://localhost:8000/api/", Request{ConversationID: 12, Content: "什么是 RAG?", Model: "qwen-turbo", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/qa/conversations/12/messages/stream?content=%E4%BB%80%E4%B9%88%E6%98%AF+RAG%3F&model=qwen-turbo&token=tok", u)
}

func TestStreamError_Is(t *testing.T) {
	err := &StreamError{Type: ErrTypeTimeout, Message: "custom"}
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrServer)
	assert.False(t, IsAuthExpired(err))
	assert.True(t, IsAuthExpired(&StreamError{Type: ErrTypeAuth}))
}
