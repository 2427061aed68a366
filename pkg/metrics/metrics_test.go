// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCeremony(t *testing.T) {
	before := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyRegistration, StatusSuccess))

	RecordCeremony(CeremonyRegistration, StatusSuccess, 0.01)

	after := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyRegistration, StatusSuccess))
	assert.Equal(t, before+1, after)
}

func TestRecordVerificationFailure(t *testing.T) {
	before := testutil.ToFloat64(VerificationFailuresTotal.WithLabelValues(CeremonyAuthentication, "counter_regression"))

	RecordVerificationFailure(CeremonyAuthentication, "counter_regression")

	after := testutil.ToFloat64(VerificationFailuresTotal.WithLabelValues(CeremonyAuthentication, "counter_regression"))
	assert.Equal(t, before+1, after)
}

func TestDisableStopsRecording(t *testing.T) {
	Disable()
	defer Enable()
	assert.False(t, IsEnabled())

	before := testutil.ToFloat64(ChallengesSweptTotal)
	RecordChallengesSwept(5)
	assert.Equal(t, before, testutil.ToFloat64(ChallengesSweptTotal))

	Enable()
	RecordChallengesSwept(5)
	assert.Equal(t, before+5, testutil.ToFloat64(ChallengesSweptTotal))
}
