package core

// Label 给 Item 附加可解释、可追踪的标记，贯穿召回/排序/过滤各阶段透传。
// Value 与 Source 的语义由写入方自定义；同名合并规则见 Item.PutLabel。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / rank / filter / engine ...
}

// mergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，
// 保留每个阶段写入的痕迹。
func mergeLabel(existing, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
