package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// AmazonSNS normalizes an SNS notification. The Message field is expected to
// be a JSON-encoded CloudWatch or Elastic Beanstalk alarm; a non-JSON body
// degrades to a raw-text alert with a documentation pointer instead of
// failing the request.
func AmazonSNS(channelID, message, topicARN string) *models.Alert {
	alert := models.NewAlert(channelID)

	var alarm map[string]interface{}
	if err := json.Unmarshal([]byte(message), &alarm); err != nil || alarm == nil {
		alert.Title = models.StringPtr("Alert")
		alert.Message = models.StringPtr(fmt.Sprintf(
			"Non-JSON payload received. Please make sure you publish monitoring Alarms to SNS,"+
				" not logs: %s/#/integrations/amazon_sns\n%s", docsBaseURL, message))
		alert.SetRawPayload(map[string]interface{}{"message": message})
		return alert
	}

	title := getString(alarm, "AlarmName")
	if title == "" {
		title = "Alert"
	}
	alert.Title = models.StringPtr(title)

	state := getString(alarm, "NewStateValue")
	if state == "" {
		state = "NO"
	}
	region := getString(alarm, "Region")
	if region == "" {
		region = "Undefined"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*State: %s*\n", state)
	fmt.Fprintf(&b, "Region: %s\n", region)
	if desc := getString(alarm, "AlarmDescription"); desc != "" {
		fmt.Fprintf(&b, "_Description:_ %s\n", desc)
	}
	b.WriteString(getString(alarm, "NewStateReason"))
	alert.Message = models.StringPtr(b.String())

	if link := consoleLink(alarm, topicARN); link != "" {
		alert.LinkToUpstream = models.StringPtr(link)
	}

	alert.SetRawPayload(alarm)
	return alert
}

// consoleLink builds the AWS console URL for the alarm. The region comes
// from the 4th colon-delimited segment of the topic ARN
// (arn:aws:sns:us-east-1:... -> us-east-1).
func consoleLink(alarm map[string]interface{}, topicARN string) string {
	parts := strings.Split(topicARN, ":")
	if len(parts) < 4 {
		return ""
	}
	region := parts[3]

	if trigger := getMap(alarm, "Trigger"); trigger != nil &&
		getString(trigger, "Namespace") == "AWS/ElasticBeanstalk" {
		return fmt.Sprintf("https://console.aws.amazon.com/elasticbeanstalk/home?region=%s", region)
	}
	return fmt.Sprintf("https://console.aws.amazon.com/cloudwatch//home?region=%s", region)
}
