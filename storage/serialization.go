// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docembed/core"
)

// float32Size is the encoded size of a raw float32.
const float32Size = 4

// MarshalPointID serializes a PointID to bytes.
func MarshalPointID(id core.PointID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalPointID deserializes a PointID from bytes.
func UnmarshalPointID(data []byte) (core.PointID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.PointID(v), nil
}

// MarshalCollectionParams serializes collection parameters to bytes.
func MarshalCollectionParams(params core.CollectionParams) []byte {
	buf := make([]byte, varint.Uint64.Size(params.VectorSize))
	varint.Uint64.Marshal(params.VectorSize, buf)
	return buf
}

// UnmarshalCollectionParams deserializes collection parameters from bytes.
func UnmarshalCollectionParams(data []byte) (core.CollectionParams, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return core.CollectionParams{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.CollectionParams{VectorSize: v}, nil
}

// MarshalPoint serializes a Point to bytes.
//
// Layout: id, vector length, vector components, text, extra count, then
// key/value pairs in key order so equal points encode identically.
func MarshalPoint(point *core.Point) []byte {
	keys := sortedKeys(point.Payload.Extra)

	size := varint.Uint64.Size(uint64(point.ID))
	size += varint.Uint64.Size(uint64(len(point.Vector)))
	size += len(point.Vector) * float32Size
	size += ord.String.Size(point.Payload.Text)
	size += varint.Uint64.Size(uint64(len(keys)))
	for _, k := range keys {
		size += ord.String.Size(k)
		size += ord.String.Size(point.Payload.Extra[k])
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(point.ID), buf)
	n += varint.Uint64.Marshal(uint64(len(point.Vector)), buf[n:])
	for _, v := range point.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	n += ord.String.Marshal(point.Payload.Text, buf[n:])
	n += varint.Uint64.Marshal(uint64(len(keys)), buf[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += ord.String.Marshal(point.Payload.Extra[k], buf[n:])
	}
	return buf
}

// UnmarshalPoint deserializes a Point from bytes.
func UnmarshalPoint(data []byte) (*core.Point, error) {
	r := &reader{data: data}

	id := r.uint64()
	vecLen := r.uint64()
	if r.err == nil && vecLen > uint64(len(r.data)-r.n)/float32Size {
		return nil, fmt.Errorf("%w: vector of %d components", ErrTruncatedData, vecLen)
	}
	var vector []float32
	if r.err == nil && vecLen > 0 {
		vector = make([]float32, vecLen)
		for i := range vector {
			vector[i] = r.float32()
		}
	}
	text := r.string()
	extraLen := r.uint64()

	var extra map[string]string
	if r.err == nil && extraLen > 0 {
		extra = make(map[string]string, min(extraLen, 64))
		for i := uint64(0); i < extraLen && r.err == nil; i++ {
			k := r.string()
			v := r.string()
			extra[k] = v
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}

	return &core.Point{
		ID:     core.PointID(id),
		Vector: vector,
		Payload: core.Payload{
			Text:  text,
			Extra: extra,
		},
	}, nil
}

// reader decodes consecutive mus values and remembers the first error.
type reader struct {
	data []byte
	n    int
	err  error
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) float32() float32 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(r.data[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.n:])
	r.n += n
	r.err = err
	return v
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
