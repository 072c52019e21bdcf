/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package concurrent

import (
	jsoniter "github.com/json-iterator/go"
)

// jsonConfig mirrors Config's fields with JSON tags; kept separate from
// Config itself so Config stays free of struct tags aimed only at this one
// loading path.
type jsonConfig struct {
	WorkerCount         int    `json:"worker_count"`
	QueueCapacity       int    `json:"queue_capacity"`
	BasicQueueThreshold int    `json:"basic_queue_threshold"`
	SignalAllOnSubmit   bool   `json:"signal_all_on_submit"`
	ThreadNamePrefix    string `json:"thread_name_prefix"`
	Daemon              bool   `json:"daemon"`
}

// configJSONAPI is the jsoniter configuration this package loads executor
// configuration with. It is built once at package init; jsoniter's compiled
// codec cache (keyed internally by a modern-go/concurrent.Map) makes repeat
// calls to LoadConfigJSON across many executors in a process cheap after the
// first.
var configJSONAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadConfigJSON decodes a Config from JSON, using json-iterator rather than
// encoding/json so that a host loading many per-tenant executor
// configurations at startup doesn't pay encoding/json's reflection cost on
// every one. Unset fields take Go's zero value, not NewConfig's defaults;
// callers that want the recommended defaults should start from NewConfig
// and decode on top of it, or apply BasicQueueThreshold/SignalAllOnSubmit
// defaults themselves after a zero-valued decode.
func LoadConfigJSON(data []byte) (Config, error) {
	var jc jsonConfig
	if err := configJSONAPI.Unmarshal(data, &jc); err != nil {
		return Config{}, err
	}
	cfg := Config{
		WorkerCount:         jc.WorkerCount,
		QueueCapacity:       jc.QueueCapacity,
		BasicQueueThreshold: jc.BasicQueueThreshold,
		SignalAllOnSubmit:   jc.SignalAllOnSubmit,
		ThreadNamePrefix:    jc.ThreadNamePrefix,
		Daemon:              jc.Daemon,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MarshalJSON lets a Config be written back out, e.g. for an admin endpoint
// that echoes the configuration an executor was constructed with.
func (c Config) MarshalJSON() ([]byte, error) {
	return configJSONAPI.Marshal(jsonConfig{
		WorkerCount:         c.WorkerCount,
		QueueCapacity:       c.QueueCapacity,
		BasicQueueThreshold: c.BasicQueueThreshold,
		SignalAllOnSubmit:   c.SignalAllOnSubmit,
		ThreadNamePrefix:    c.ThreadNamePrefix,
		Daemon:              c.Daemon,
	})
}
