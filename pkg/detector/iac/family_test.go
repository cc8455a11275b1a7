package iac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

const cleanConfig = `terraform {
  required_providers {
    aws = {
      source  = "hashicorp/aws"
      version = "~> 5.0"
    }
  }
  backend "s3" {
    bucket         = "state"
    key            = "prod/terraform.tfstate"
    region         = "us-east-1"
    dynamodb_table = "locks"
  }
}

variable "region" {
  type = string
}

variable "db_password" {
  type      = string
  sensitive = true
}

provider "aws" {
  region = var.region
}

resource "aws_db_instance" "db" {
  engine   = "postgres"
  password = var.db_password
  tags = {
    Team = "data"
  }
}
`

const messyConfig = `terraform {
  backend "s3" {
    bucket = "state"
    key    = "terraform.tfstate"
  }
}

provider "aws" {}

provider "google" {
  project = "demo"
  version = "~> 4.0"
}

resource "aws_db_instance" "db" {
  engine   = "postgres"
  username = var.db_user
  password = "MySecretPassword123"
  api_token = "${var.prefix}-token"
}

resource "google_storage_bucket" "logs" {
  name     = "logs-${var.env}"
  location = var.region
}

resource "aws_s3_bucket_policy" "p" {
  bucket = "b"
}

resource "aws_instance" "empty" {}

auth_token = "abcdef0123456789"
`

func findRule(issues []model.Issue, ruleID string) []model.Issue {
	var out []model.Issue
	for _, i := range issues {
		if i.RuleID == ruleID {
			out = append(out, i)
		}
	}
	return out
}

func TestDetect_CleanConfig(t *testing.T) {
	issues, err := New().Detect(context.Background(), cleanConfig)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_HardcodedSecretLiteral(t *testing.T) {
	issues, err := New().Detect(context.Background(), `resource "aws_db_instance" "db" {
  engine   = "postgres"
  password = "MySecretPassword123"
  tags     = {}
}
`)
	require.NoError(t, err)
	secrets := findRule(issues, catalog.IaCHardcodedSecret)
	require.Len(t, secrets, 1)
	assert.Equal(t, "aws_db_instance.db.password", secrets[0].ResourceRef)
	assert.Equal(t, "password", secrets[0].Fact("attribute"))
	assert.Equal(t, "db_password", secrets[0].Fact("variable"))
	assert.Equal(t, "3", secrets[0].Fact("line"))
}

func TestDetect_HardcodedSecretVariableReference(t *testing.T) {
	issues, err := New().Detect(context.Background(), `resource "aws_db_instance" "db" {
  password = var.db_password
}
`)
	require.NoError(t, err)
	assert.Empty(t, findRule(issues, catalog.IaCHardcodedSecret))
}

func TestDetect_MessyConfig(t *testing.T) {
	issues, err := New().Detect(context.Background(), messyConfig)
	require.NoError(t, err)

	vars := findRule(issues, catalog.IaCUndeclaredVariable)
	require.Len(t, vars, 4)
	assert.Equal(t, []string{"db_user", "prefix", "env", "region"},
		[]string{vars[0].Fact("variable"), vars[1].Fact("variable"), vars[2].Fact("variable"), vars[3].Fact("variable")})
	assert.Equal(t, "var.db_user", vars[0].ResourceRef)

	secrets := findRule(issues, catalog.IaCHardcodedSecret)
	require.Len(t, secrets, 2)
	assert.Equal(t, "aws_db_instance.db.password", secrets[0].ResourceRef)
	assert.Equal(t, "auth_token", secrets[1].ResourceRef)

	locking := findRule(issues, catalog.IaCMissingStateLocking)
	require.Len(t, locking, 1)
	assert.Equal(t, "terraform.backend.s3", locking[0].ResourceRef)
	assert.Equal(t, "s3", locking[0].Fact("backend"))

	region := findRule(issues, catalog.IaCMissingProviderRegion)
	require.Len(t, region, 1)
	assert.Equal(t, "provider.aws", region[0].ResourceRef)

	unpinned := findRule(issues, catalog.IaCUnpinnedProvider)
	require.Len(t, unpinned, 1)
	assert.Equal(t, "aws", unpinned[0].Fact("provider"))

	tags := findRule(issues, catalog.IaCMissingTags)
	require.Len(t, tags, 2)
	assert.Equal(t, "aws_db_instance.db", tags[0].ResourceRef)
	assert.Equal(t, "google_storage_bucket.logs", tags[1].ResourceRef)
	assert.Equal(t, "labels", tags[1].Fact("attribute"))

	empty := findRule(issues, catalog.IaCEmptyResource)
	require.Len(t, empty, 1)
	assert.Equal(t, "aws_instance.empty", empty[0].ResourceRef)
	assert.Equal(t, "aws_instance", empty[0].Fact("resource_type"))
}

func TestDetect_StateLocking(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"no terraform block", `resource "null_resource" "x" { triggers = {} }`, 0},
		{"no backend", "terraform {\n  required_version = \">= 1.5\"\n}\n", 1},
		{"cloud block", "terraform {\n  cloud {\n    organization = \"acme\"\n  }\n}\n", 0},
		{"gcs backend", "terraform {\n  backend \"gcs\" {\n    bucket = \"s\"\n  }\n}\n", 0},
		{"s3 lockfile", "terraform {\n  backend \"s3\" {\n    use_lockfile = true\n  }\n}\n", 0},
		{"s3 lockfile off", "terraform {\n  backend \"s3\" {\n    use_lockfile = false\n  }\n}\n", 1},
		{"local backend", "terraform {\n  backend \"local\" {}\n}\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := New().Only(catalog.IaCMissingStateLocking).Detect(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Len(t, issues, tt.want)
		})
	}
}

func TestDetect_LegacyProviderConstraint(t *testing.T) {
	issues, err := New().Only(catalog.IaCUnpinnedProvider).Detect(context.Background(), `terraform {
  required_providers {
    aws    = "~> 3.0"
    random = { source = "hashicorp/random" }
  }
}
`)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "provider.random", issues[0].ResourceRef)
}

func TestDetect_Empty(t *testing.T) {
	issues, err := New().Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetect_Malformed(t *testing.T) {
	_, err := New().Detect(context.Background(), `resource "aws_instance" "x" {`)
	assert.ErrorIs(t, err, model.ErrMalformedArtifact)
}

func TestDetect_RuleIndependence(t *testing.T) {
	for _, cfg := range []string{cleanConfig, messyConfig} {
		full, err := New().Detect(context.Background(), cfg)
		require.NoError(t, err)

		var union []model.Issue
		for _, id := range New().RuleIDs() {
			issues, err := New().Only(id).Detect(context.Background(), cfg)
			require.NoError(t, err)
			union = append(union, issues...)
		}
		assert.Equal(t, full, union)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	first, err := New().Detect(context.Background(), messyConfig)
	require.NoError(t, err)
	for range 5 {
		again, err := New().Detect(context.Background(), messyConfig)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestChecks_CoverCatalog(t *testing.T) {
	var want []string
	for _, r := range catalog.MustDefault().RulesFor(model.CategoryInfraAsCode) {
		want = append(want, r.ID)
	}
	assert.Equal(t, want, New().RuleIDs())
}
