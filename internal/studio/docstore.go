/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package studio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

const defaultMaxFileSize = 100 * 1024 * 1024

// s3API abstracts the subset of *s3.Client the document-store generator
// needs, so tests can substitute a fake.
type s3API interface {
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// DocumentStoreGenerator compiles a document-store spec into a handler
// supporting search/list/get/download actions against an S3-backed store.
type DocumentStoreGenerator struct {
	newClient func(ctx context.Context, region, endpoint string) (s3API, error)
}

// NewDocumentStoreGenerator returns a document-store generator using the
// default AWS SDK v2 client construction.
func NewDocumentStoreGenerator() *DocumentStoreGenerator {
	return &DocumentStoreGenerator{newClient: defaultS3Client}
}

func defaultS3Client(ctx context.Context, region, endpoint string) (s3API, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func (g *DocumentStoreGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	if _, err := requireString(spec, "bucket"); err != nil {
		return err
	}
	switch stringField(spec, "auth_kind") {
	case "", "basic", "oauth", "ticket":
	default:
		return apierr.Newf(apierr.InvalidArgument, "unsupported auth_kind %q", spec["auth_kind"])
	}
	return nil
}

func (g *DocumentStoreGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceDocumentStore)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	bucket := stringField(spec, "bucket")
	prefix := stringField(spec, "prefix")
	region := stringField(spec, "region")
	endpoint := stringField(spec, "endpoint")
	maxFileSize := int64(intField(spec, "max_file_size", defaultMaxFileSize))

	handler := registry.NewGenericHandler(registry.SourceDocumentStore, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		client, err := g.newClient(ctx, region, endpoint)
		if err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "construct s3 client", err)
		}
		action := stringField(arguments, "action")
		key := stringField(arguments, "key")
		switch action {
		case "search", "list":
			return docStoreList(ctx, client, bucket, prefix, stringField(arguments, "query"))
		case "get":
			return docStoreGet(ctx, client, bucket, key)
		case "download":
			return docStoreDownload(ctx, client, bucket, key, maxFileSize)
		default:
			return nil, apierr.Newf(apierr.InvalidArgument, "unsupported document store action %q", action)
		}
	})

	return def, handler, nil
}

func docStoreList(ctx context.Context, client s3API, bucket, prefix, query string) (*registry.Result, error) {
	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "list documents", err)
	}
	docs := make([]map[string]any, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if query != "" && !strings.Contains(strings.ToLower(key), strings.ToLower(query)) {
			continue
		}
		docs = append(docs, map[string]any{
			"key":        key,
			"size_bytes": aws.ToInt64(obj.Size),
		})
	}
	return &registry.Result{Content: map[string]any{"documents": docs}}, nil
}

func docStoreGet(ctx context.Context, client s3API, bucket, key string) (*registry.Result, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "get document metadata", err)
	}
	return &registry.Result{Content: map[string]any{
		"key":        key,
		"size_bytes": aws.ToInt64(head.ContentLength),
		"mime_type":  aws.ToString(head.ContentType),
	}}, nil
}

func docStoreDownload(ctx context.Context, client s3API, bucket, key string, maxFileSize int64) (*registry.Result, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "get document metadata", err)
	}
	size := aws.ToInt64(head.ContentLength)
	if size > maxFileSize {
		return nil, apierr.Newf(apierr.PayloadTooLarge, "document %q is %d bytes, exceeds limit of %d", key, size, maxFileSize)
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "download document", err)
	}
	defer obj.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj.Body); err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "read document body", err)
	}

	return &registry.Result{Content: map[string]any{
		"key":        key,
		"size_bytes": size,
		"data":       base64.StdEncoding.EncodeToString(buf.Bytes()),
	}}, nil
}
