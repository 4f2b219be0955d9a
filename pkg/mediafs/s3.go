package mediafs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3Downloader is the slice of the S3 API the cache needs; tests stub it.
type s3Downloader interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// downloadS3 streams an s3://bucket/key object into out. The client is
// built once, from the same environment variables the deployment already
// carries for the media bucket.
func (c *Cache) downloadS3(ctx context.Context, uri string, out io.Writer) error {
	client, err := c.s3Client()
	if err != nil {
		return err
	}

	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}

	result, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer result.Body.Close()

	_, err = io.Copy(out, result.Body)
	return err
}

func (c *Cache) s3Client() (s3Downloader, error) {
	c.s3Once.Do(func() {
		region := os.Getenv("AWS_DEFAULT_REGION")
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

		if region == "" || accessKey == "" || secretKey == "" {
			c.s3Err = errors.New("missing one or more required environment variables: AWS_DEFAULT_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY")
			return
		}

		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(region),
			Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
		})
		if err != nil {
			c.s3Err = err
			return
		}
		c.s3 = s3.New(sess)
	})
	return c.s3, c.s3Err
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %s", uri)
	}
	return parts[0], parts[1], nil
}
