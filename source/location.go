package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"
)

const s3Scheme = "s3://"

// S3API is the subset of the S3 client the loader uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// file is one resolved input file.
type file struct {
	name string
	open func(ctx context.Context) (io.ReadCloser, error)
}

// resolveLocal expands a path, directory or doublestar glob into files.
func resolveLocal(location string) ([]file, error) {
	var paths []string

	switch info, err := os.Stat(location); {
	case err == nil && info.IsDir():
		err := doublestar.GlobWalk(os.DirFS(location), "**", func(p string, d fs.DirEntry) error {
			if !d.IsDir() && supported(p) {
				paths = append(paths, filepath.Join(location, filepath.FromSlash(p)))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", location, err)
		}

	case err == nil:
		paths = []string{location}

	case errors.Is(err, fs.ErrNotExist) && hasMeta(location):
		matches, err := doublestar.FilepathGlob(location, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", location, err)
		}
		for _, m := range matches {
			if supported(m) {
				paths = append(paths, m)
			}
		}

	default:
		return nil, err
	}

	slices.Sort(paths)
	files := make([]file, len(paths))
	for i, p := range paths {
		files[i] = file{
			name: p,
			open: func(context.Context) (io.ReadCloser, error) {
				return os.Open(p)
			},
		}
	}
	return files, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// parseS3 splits s3://bucket/key into bucket and key.
func parseS3(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 location %q: missing bucket", location)
	}
	return bucket, key, nil
}

// resolveS3 lists a prefix, or returns the single object a key names.
func resolveS3(ctx context.Context, client S3API, location string) ([]file, error) {
	bucket, key, err := parseS3(location)
	if err != nil {
		return nil, err
	}

	var keys []string
	if key != "" && !strings.HasSuffix(key, "/") && supported(key) {
		keys = []string{key}
	} else {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(key),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", location, err)
			}
			for _, obj := range page.Contents {
				if k := aws.ToString(obj.Key); supported(k) {
					keys = append(keys, k)
				}
			}
		}
	}

	slices.Sort(keys)
	files := make([]file, len(keys))
	for i, k := range keys {
		files[i] = file{
			name: s3Scheme + bucket + "/" + k,
			open: func(ctx context.Context) (io.ReadCloser, error) {
				out, err := client.GetObject(ctx, &s3.GetObjectInput{
					Bucket: aws.String(bucket),
					Key:    aws.String(k),
				})
				if err != nil {
					return nil, err
				}
				return out.Body, nil
			},
		}
	}
	return files, nil
}
