// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SessionCredentials optionally overrides the default credential chain.
type SessionCredentials struct {
	Profile        string
	ID             string
	Secret         string
	Token          string
	Role           string
	RoleExternalID string
}

// SessionConfig describes how to build an AWS config for talking to Bedrock.
type SessionConfig struct {
	Region      string
	Endpoint    string
	Credentials SessionCredentials
}

// GetSession loads an aws.Config from the default chain, modified by the
// region, endpoint and credentials of conf.
func GetSession(ctx context.Context, conf SessionConfig, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
	if conf.Region != "" {
		opts = append(opts, config.WithRegion(conf.Region))
	}

	creds := conf.Credentials
	if creds.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(creds.Profile))
	} else if creds.ID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.ID, creds.Secret, creds.Token,
		)))
	}

	awsConf, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awsConf, err
	}

	if conf.Endpoint != "" {
		endpoint := conf.Endpoint
		awsConf.BaseEndpoint = &endpoint
	}

	if creds.Role != "" {
		stsSvc := sts.NewFromConfig(awsConf)

		var stsOpts []func(*stscreds.AssumeRoleOptions)
		if externalID := creds.RoleExternalID; externalID != "" {
			stsOpts = append(stsOpts, func(aro *stscreds.AssumeRoleOptions) {
				aro.ExternalID = &externalID
			})
		}

		awsConf.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsSvc, creds.Role, stsOpts...))
	}
	return awsConf, nil
}
