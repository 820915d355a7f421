package storage

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestS3MirrorUpload(t *testing.T) {
	putter := &fakePutter{}
	m := newS3Mirror(putter, "reports", "weekly/")

	require.NoError(t, m.Upload(context.Background(), "script_2025-08-11.md", []byte("# hi"), "text/markdown"))
	require.Len(t, putter.inputs, 1)
	require.Equal(t, "reports", aws.ToString(putter.inputs[0].Bucket))
	require.Equal(t, "weekly/script_2025-08-11.md", aws.ToString(putter.inputs[0].Key))
	require.Equal(t, "text/markdown", aws.ToString(putter.inputs[0].ContentType))
	require.Equal(t, "# hi", putter.bodies[0])
	require.Equal(t, "s3://reports/weekly/", m.Target())
}

func TestS3MirrorUploadErrorCarriesCode(t *testing.T) {
	putter := &fakePutter{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}}
	m := newS3Mirror(putter, "reports", "")

	err := m.Upload(context.Background(), "articles.json", []byte("[]"), "application/json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "AccessDenied")

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
}
