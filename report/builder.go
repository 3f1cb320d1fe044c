package report

// 渲染树构建器：消费 schema + 记录 + 绑定解析器，产出与输出格式无关的
// 中间表示。除 Metadata.GeneratedAt 外，相同输入必得到逐字节相同的树。

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/record"
	"github.com/ByLCY/vellum/schema"
)

// pagePresets 以毫米记录纵向纸张尺寸，landscape 时交换宽高。
var pagePresets = map[string][2]float64{
	"A4":     {210, 297},
	"A3":     {297, 420},
	"Letter": {215.9, 279.4},
}

const defaultMargin = 20.0

// Builder 构建渲染树。零值不可用，请通过 NewBuilder 构造。
type Builder struct {
	resolver *binding.Resolver
	log      *zap.Logger
	now      func() time.Time
}

// NewBuilder 构造渲染树构建器。log 为 nil 时静默。
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		resolver: binding.NewResolver(log),
		log:      log,
		now:      time.Now,
	}
}

// Build 校验 schema 后按区块顺序构建渲染树。
// schema 结构错误与非法绑定路径是致命错误，在任何绘制发生前返回；
// 数据缺失一律落成空内容而不是失败。
func (b *Builder) Build(s *schema.Schema, rec *record.Record) (*Tree, error) {
	if rec == nil {
		return nil, fmt.Errorf("record 为空")
	}
	if err := schema.Validate(s); err != nil {
		return nil, err
	}
	if err := binding.ValidateRules(s); err != nil {
		return nil, err
	}

	tree := &Tree{
		Page:     resolvePage(s.Page),
		Metadata: b.buildMetadata(rec),
	}

	for _, sec := range s.Sections {
		if sec.ShowIf != nil && !b.resolver.Evaluate(sec.ShowIf, rec) {
			// 条件为假的区块整体省略，而不是输出空内容。
			continue
		}
		block, err := b.buildBlock(sec, rec)
		if err != nil {
			return nil, err
		}
		tree.Blocks = append(tree.Blocks, block)
	}
	return tree, nil
}

// resolvePage 填充页面默认值：A4、portrait、四边 20mm。
// 四边全为零视为未声明页边距。
func resolvePage(p *schema.Page) PageSetup {
	setup := PageSetup{
		Size:        "A4",
		Orientation: "portrait",
		Margins:     schema.Margins{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin},
	}
	if p != nil {
		if p.Size != "" {
			setup.Size = p.Size
		}
		if p.Orientation != "" {
			setup.Orientation = p.Orientation
		}
		if p.Margins != (schema.Margins{}) {
			setup.Margins = p.Margins
		}
	}
	base := pagePresets[setup.Size]
	setup.Width, setup.Height = base[0], base[1]
	if setup.Orientation == "landscape" {
		setup.Width, setup.Height = setup.Height, setup.Width
	}
	return setup
}

func (b *Builder) buildMetadata(rec *record.Record) Metadata {
	meta := Metadata{
		GeneratedAt: b.now(),
		RecordID:    rec.ID,
		EntryDate:   rec.EntryDate,
		Shift:       rec.Shift,
		Status:      rec.Status,
		Creator:     rec.CreatorName,
	}
	if rec.Contract != nil {
		meta.Contract = rec.Contract.Name
	}
	if rec.Template != nil {
		meta.Template = rec.Template.Name
	}
	return meta
}

// buildBlock 按区块类型分发。枚举是封闭的：未知类型说明校验器被绕过，
// 直接报错而不是跳过。
func (b *Builder) buildBlock(sec schema.Section, rec *record.Record) (Block, error) {
	block := Block{
		ID:      sec.ID,
		Type:    sec.BlockType,
		Layout:  sec.Layout,
		Options: copyOptions(sec.Options),
	}

	switch sec.BlockType {
	case schema.BlockHeader:
		block.Fields = b.headerFields(sec, rec)
	case schema.BlockDetailEntry, schema.BlockTable:
		block.Fields = b.extractFields(sec.Binding, rec)
	case schema.BlockTextSection:
		block.Text = b.textContent(sec.Binding, rec)
	case schema.BlockChecklist:
		block.Checklist = b.checklistItems(sec.Binding, rec)
	case schema.BlockMetricsCards:
		block.Metrics = b.metricValues(sec.Binding, rec)
	case schema.BlockPhotoGrid:
		block.Photos = b.photoItems(sec.Binding, rec)
	case schema.BlockSignatureBox:
		block.Signatures = b.signatureItems(sec.Binding, rec)
	default:
		return Block{}, fmt.Errorf("sections %q: 未知 block_type %q", sec.ID, sec.BlockType)
	}
	return block, nil
}

// headerFields：页头默认展示记录概要，有显式绑定时以绑定为准。
func (b *Builder) headerFields(sec schema.Section, rec *record.Record) []Field {
	if sec.Binding.Kind != schema.BindingNone {
		return b.extractFields(sec.Binding, rec)
	}
	fields := []Field{}
	push := func(key, label string, value any) {
		if s, ok := value.(string); ok && s == "" {
			return
		}
		fields = append(fields, Field{Key: key, Label: label, Value: value})
	}
	if rec.Contract != nil {
		push("contract", "Contract", rec.Contract.Name)
	}
	if rec.Template != nil {
		push("template", "Template", rec.Template.Name)
	}
	push("entry_date", "Entry Date", rec.EntryDate)
	push("shift", "Shift", rec.Shift)
	push("status", "Status", rec.Status)
	push("creator_name", "Created By", rec.CreatorName)
	return fields
}

// extractFields 按绑定形态取字段列表，恰好执行五种变体之一。
func (b *Builder) extractFields(spec schema.BindingSpec, rec *record.Record) []Field {
	switch spec.Kind {
	case schema.BindingAutoExtract:
		return b.autoExtract(rec)
	case schema.BindingTemplateSection:
		return b.templateSectionFields(spec, rec)
	case schema.BindingSourcePath:
		return b.sourceFields(spec.Source, rec)
	default:
		return nil
	}
}

// autoExtract 提取数据映射里的全部标量字段，键名含 photo/signature 的除外
// （它们有专属区块类型）；随后补充尚未出现的顶层标量。
// 数据键按完整点号键排序，保证构建结果确定。
func (b *Builder) autoExtract(rec *record.Record) []Field {
	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := []Field{}
	seen := map[string]bool{}
	for _, k := range keys {
		v := rec.Data[k]
		if !isScalar(v) {
			continue
		}
		lower := strings.ToLower(k)
		if strings.Contains(lower, "photo") || strings.Contains(lower, "signature") {
			continue
		}
		short := shortName(k)
		if seen[short] {
			continue
		}
		seen[short] = true
		fields = append(fields, Field{Key: short, Label: labelize(short), Value: v})
	}

	topLevel := []struct {
		key   string
		value string
	}{
		{"entry_date", rec.EntryDate},
		{"shift", rec.Shift},
		{"status", rec.Status},
		{"creator_name", rec.CreatorName},
	}
	for _, t := range topLevel {
		if t.value == "" || seen[t.key] {
			continue
		}
		seen[t.key] = true
		fields = append(fields, Field{Key: t.key, Label: labelize(t.key), Value: t.value})
	}
	return fields
}

// templateSectionFields 提取以 "<template_section>." 开头的全部扁平键。
// 显式给出 fields/field 时仅取这些键，且顺序以声明为准。
func (b *Builder) templateSectionFields(spec schema.BindingSpec, rec *record.Record) []Field {
	prefix := spec.TemplateSection + "."

	wanted := spec.Fields
	if len(wanted) == 0 && spec.Field != "" {
		wanted = []string{spec.Field}
	}
	if len(wanted) > 0 {
		fields := make([]Field, 0, len(wanted))
		for _, name := range wanted {
			v, ok := rec.Data[prefix+name]
			if !ok {
				v = nil
			}
			fields = append(fields, Field{Key: name, Label: labelize(name), Value: v})
		}
		return fields
	}

	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		short := strings.TrimPrefix(k, prefix)
		fields = append(fields, Field{Key: short, Label: labelize(short), Value: rec.Data[k]})
	}
	return fields
}

// sourceFields 解析 source 路径：映射展开为多个字段，标量落成单字段。
func (b *Builder) sourceFields(path string, rec *record.Record) []Field {
	v := b.resolver.Resolve(rec, path)
	switch m := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Label: labelize(k), Value: m[k]})
		}
		return fields
	case nil:
		return nil
	default:
		short := shortName(strings.SplitN(path, "[", 2)[0])
		return []Field{{Key: short, Label: labelize(short), Value: v}}
	}
}

func (b *Builder) textContent(spec schema.BindingSpec, rec *record.Record) string {
	if spec.Kind != schema.BindingSourcePath {
		return ""
	}
	v := b.resolver.Resolve(rec, spec.Source)
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// checklistItems 归一化检查项：task/label/item 任一键作为条目名，
// status/value/checked 任一键作为状态。
func (b *Builder) checklistItems(spec schema.BindingSpec, rec *record.Record) []ChecklistItem {
	var raw any
	switch spec.Kind {
	case schema.BindingSourcePath:
		raw = b.resolver.Resolve(rec, spec.Source)
	case schema.BindingTemplateSection:
		raw = rec.Data[spec.TemplateSection]
		if raw == nil && spec.Field != "" {
			raw = rec.Data[spec.TemplateSection+"."+spec.Field]
		}
	default:
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]ChecklistItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			// 裸字符串条目视为未勾选任务。
			out = append(out, ChecklistItem{Task: fmt.Sprint(it)})
			continue
		}
		item := ChecklistItem{}
		for _, key := range []string{"task", "label", "item"} {
			if v, ok := m[key]; ok {
				item.Task = fmt.Sprint(v)
				break
			}
		}
		for _, key := range []string{"status", "value", "checked"} {
			if v, ok := m[key]; ok {
				item.Status = v
				break
			}
		}
		if v, ok := m["remarks"]; ok {
			item.Remarks = fmt.Sprint(v)
		}
		out = append(out, item)
	}
	return out
}

func (b *Builder) metricValues(spec schema.BindingSpec, rec *record.Record) []Metric {
	if spec.Kind != schema.BindingMetrics {
		return nil
	}
	out := make([]Metric, 0, len(spec.Metrics))
	for _, m := range spec.Metrics {
		key := m.Field
		if m.TemplateSection != "" {
			key = m.TemplateSection + "." + m.Field
		}
		label := m.Label
		if label == "" {
			label = labelize(m.Field)
		}
		out = append(out, Metric{Label: label, Unit: m.Unit, Value: rec.Data[key]})
	}
	return out
}

// photoItems：有显式 source 时按路径解析，否则隐式过滤 file_type == photo。
// 图片地址取 storage_url，缺失时回落到 url 键。
func (b *Builder) photoItems(spec schema.BindingSpec, rec *record.Record) []Photo {
	atts := b.boundAttachments(spec, rec, record.FilePhoto)
	out := make([]Photo, 0, len(atts))
	for _, a := range atts {
		url := a.StorageURL
		if url == "" {
			if v, ok := a.Metadata["url"]; ok {
				url = fmt.Sprint(v)
			}
		}
		photo := Photo{
			URL:       url,
			Caption:   a.Caption,
			Timestamp: a.CreatedAt,
			FieldID:   a.FieldID,
		}
		if v, ok := a.Metadata["location"]; ok {
			photo.Location = fmt.Sprint(v)
		}
		out = append(out, photo)
	}
	return out
}

// signatureItems：优先用过滤出的签名附件；一个都没有时，退回到
// 数据映射里的签名 UUID 值，按附件 id 反查。
func (b *Builder) signatureItems(spec schema.BindingSpec, rec *record.Record) []Signature {
	atts := b.boundAttachments(spec, rec, record.FileSignature)
	if len(atts) == 0 {
		atts = b.signaturesFromData(rec)
	}
	out := make([]Signature, 0, len(atts))
	for _, a := range atts {
		sig := Signature{
			URL:     a.StorageURL,
			Name:    rec.CreatorName,
			Date:    a.CreatedAt,
			FieldID: a.FieldID,
		}
		if v, ok := a.Metadata["name"]; ok {
			sig.Name = fmt.Sprint(v)
		}
		if v, ok := a.Metadata["role"]; ok {
			sig.Role = fmt.Sprint(v)
		}
		out = append(out, sig)
	}
	return out
}

// signaturesFromData 在数据映射中寻找键名含 signature、值为 UUID 的字段，
// 并回查附件列表。键排序遍历，保证结果顺序稳定。
func (b *Builder) signaturesFromData(rec *record.Record) []record.Attachment {
	byID := make(map[string]record.Attachment, len(rec.Attachments))
	for _, a := range rec.Attachments {
		byID[a.ID] = a
	}

	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		if strings.Contains(strings.ToLower(k), "signature") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []record.Attachment
	for _, k := range keys {
		s, ok := rec.Data[k].(string)
		if !ok {
			continue
		}
		if _, err := uuid.Parse(s); err != nil {
			continue
		}
		if a, ok := byID[s]; ok {
			out = append(out, a)
		} else {
			b.log.Warn("签名 UUID 在附件列表中不存在", zap.String("key", k), zap.String("id", s))
		}
	}
	return out
}

// boundAttachments 解析绑定到附件列表的规则；无绑定时按 file_type 隐式过滤。
func (b *Builder) boundAttachments(spec schema.BindingSpec, rec *record.Record, fileType string) []record.Attachment {
	if spec.Kind == schema.BindingSourcePath {
		v := b.resolver.Resolve(rec, spec.Source)
		switch c := v.(type) {
		case []record.Attachment:
			return c
		case []any:
			out := make([]record.Attachment, 0, len(c))
			for _, elem := range c {
				if a, ok := elem.(record.Attachment); ok {
					out = append(out, a)
				}
			}
			return out
		default:
			return nil
		}
	}
	var out []record.Attachment
	for _, a := range rec.Attachments {
		if a.FileType == fileType {
			out = append(out, a)
		}
	}
	return out
}

func copyOptions(opts map[string]any) map[string]any {
	if opts == nil {
		return nil
	}
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func shortName(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}

// labelize 把 snake_case 字段名转成展示标签，如 entry_date → Entry Date。
func labelize(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
