/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	applog "gotshirtdesigner/internal/log"
)

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object metadata keys (sent as x-amz-meta-*).
const (
	metaName       = "name"
	metaMultiplier = "multiplier"
	metaCreated    = "created"
)

type s3Store struct {
	client s3API
	bucket string
	prefix string
	log    *slog.Logger
}

// OpenS3 uses the default AWS credential chain.
func OpenS3(ctx context.Context, bucket, prefix string) (Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("s3 store: bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Store(c s3API, bucket, prefix string) *s3Store {
	return &s3Store{
		client: c,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    applog.WithComponent("artifact").With(slog.String("bucket", bucket)),
	}
}

func (s *s3Store) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) Put(ctx context.Context, a *Artifact) (Meta, error) {
	m, err := prepare(a)
	if err != nil {
		return Meta{}, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(m.ID)),
		Body:          bytes.NewReader(a.Data),
		ContentType:   aws.String(m.ContentType),
		ContentLength: aws.Int64(m.Size),
		Metadata: map[string]string{
			metaName:       m.Name,
			metaMultiplier: strconv.Itoa(m.Multiplier),
			metaCreated:    m.Created.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return Meta{}, fmt.Errorf("upload artifact %s: %w", m.ID, err)
	}
	return m, nil
}

func metaFrom(id string, md map[string]string, contentType *string, size *int64) Meta {
	m := Meta{ID: id, Name: md[metaName], ContentType: aws.ToString(contentType), Size: aws.ToInt64(size)}
	m.Multiplier, _ = strconv.Atoi(md[metaMultiplier])
	m.Created, _ = time.Parse(time.RFC3339Nano, md[metaCreated])
	if m.Name == "" {
		m.Name = id
	}
	return m
}

func (s *s3Store) Get(ctx context.Context, id string) (*Artifact, error) {
	if ValidateID(id) != nil {
		return nil, ErrNotFound
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get artifact %s: %w", id, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}
	m := metaFrom(id, resp.Metadata, resp.ContentType, aws.Int64(int64(len(data))))
	return &Artifact{Meta: m, Data: data}, nil
}

func (s *s3Store) List(ctx context.Context) ([]Meta, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix + "/")
	}
	var out []Meta
	for {
		page, err := s.client.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		for _, obj := range page.Contents {
			id := path.Base(aws.ToString(obj.Key))
			if ValidateID(id) != nil {
				continue
			}
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: obj.Key})
			if err != nil {
				s.log.Warn("skip artifact without metadata", slog.String("key", aws.ToString(obj.Key)), slog.Any("err", err))
				continue
			}
			out = append(out, metaFrom(id, head.Metadata, head.ContentType, head.ContentLength))
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		in.ContinuationToken = page.NextContinuationToken
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	if ValidateID(id) != nil {
		return ErrNotFound
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(id))})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("head artifact %s: %w", id, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}); err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}

func (s *s3Store) Close() error { return nil }
