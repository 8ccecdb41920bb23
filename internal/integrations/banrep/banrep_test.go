package banrep

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Client{log: logger}
}

func TestParseAnnualRate(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8"?>
		<response>
			<series name="reference-rate">
				<observation><date>2024-11-01</date><value>13.00</value></observation>
				<observation><date>2024-12-01</date><value>12.75</value></observation>
			</series>
		</response>`)

	rate, err := testClient().parseAnnualRate(body)
	require.NoError(t, err)
	assert.Equal(t, 12.75, rate, "the latest observation wins")
}

func TestParseAnnualRate_EmptySeries(t *testing.T) {
	body := []byte(`<?xml version="1.0"?><response><series name="reference-rate"/></response>`)

	_, err := testClient().parseAnnualRate(body)
	assert.Error(t, err)
}

func TestParseAnnualRate_MalformedXML(t *testing.T) {
	_, err := testClient().parseAnnualRate([]byte(`not xml at all`))
	assert.Error(t, err)
}
