package rankstore

import "fmt"

func recencyKey(project string) string     { return fmt.Sprintf("rank:%s:recency", project) }
func frequencyKey(project string) string   { return fmt.Sprintf("rank:%s:frequency", project) }
func tagKey(project, tag string) string    { return fmt.Sprintf("rank:%s:tag:%s", project, tag) }
func pathTagsKey(project, path string) string {
	return fmt.Sprintf("rank:%s:pathtags:%s", project, path)
}
func transKey(project, from string) string { return fmt.Sprintf("rank:%s:trans:%s", project, from) }
func transTimingKey(project, from, to string) string {
	return fmt.Sprintf("rank:%s:transtiming:%s:%s", project, from, to)
}
func seqKey(project, session string) string { return fmt.Sprintf("rank:%s:seq:%s", project, session) }
func predKey(id string) string              { return fmt.Sprintf("rank:pred:%s", id) }
func rollingPredsKey(project string) string { return fmt.Sprintf("rank:%s:rolling:preds", project) }
func sessionPredsKey(project, session string) string {
	return fmt.Sprintf("rank:%s:seqpreds:%s", project, session)
}
func tunerArmKey(k int) string { return fmt.Sprintf("tuner:arm:%d", k) }

func statusKey(project string) string     { return fmt.Sprintf("rank:%s:status", project) }
func statusTagsKey(project string) string { return fmt.Sprintf("rank:%s:status:tags", project) }
