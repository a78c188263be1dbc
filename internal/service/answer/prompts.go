package answer

import (
	"fmt"
	"strings"

	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/repository"
)

// systemPrompt 有据回答的总规则：闲聊直接答，专业问题依据参考文档，不对口就明确说没找到
const systemPrompt = `你是一名资深运维工程师助手。

你的任务是根据用户问题和提供的【参考文档】进行回答。

处理规则如下：

1. **针对闲聊或通用问题**（如问候、夸奖、询问天气、常识等）：
   - 请忽略参考文档，直接用自然、流畅、友好的语气回答用户。
   - **不要**在回答中提及"未在知识库找到"或引用文档。
   - 直接输出回复内容，不要输出"属于闲聊"等分类标签。

2. **针对专业运维或业务咨询**（涉及具体设备、流程、故障、指标等）：
   - 必须严格依据【参考文档】回答。
   - **关键校验**：检索系统可能会返回不相关的文档。请务必先判断【参考文档】的内容是否真的与用户问题（或图片展示的报错）对口。
     - 例如：用户问的是"数据库连接失败"，但文档是"服务器登录指南"，这属于**无关文档**。
   - 如果【参考文档】与用户问题**无关**，或者无法解决该问题，请直接忽略文档，并明确输出："未在现有运维知识库中找到标准处置方案，请联系后台支撑。"
   - 禁止强行关联不相关的文档，禁止编造文档中不存在的内容。
   - 引用格式（仅在文档相关时使用）：根据《[文档名称]》[章节]（上传时间：YYYY-MM-DD），标准处理流程如下：...

请直接根据上述规则输出回答。`

// classifyPrompt 意图识别提示词，只输出类别名称
const classifyPrompt = `你是一个意图识别助手。
请判断用户的输入是"闲聊"还是"专业问题"。
- 闲聊：打招呼、问候、夸奖、询问天气、个人情感等非技术类内容。
- 专业问题：涉及运维、技术、业务流程、故障排查、系统操作等内容。

用户输入：%s

请仅输出类别名称（"闲聊"或"专业问题"），不要包含其他文字。`

// chitchatPrompt 闲聊直答提示词，不走检索
const chitchatPrompt = `用户输入：%s

请自然、友好地回应用户。不要提及知识库或文档。`

// polishPrompt 答案润色提示词，保持原意只做轻微修正
const polishPrompt = `你是一个专业的运维助手。请对以下问答对中的答案进行**轻微润色**。
要求：
1. 保持原意，不要过度发散或添加无关信息。
2. 专业术语准确，语言言简意赅。
3. 仅在必要时进行语法或逻辑修正。

问题：%s
草稿答案：%s

请直接输出优化后的答案内容，不要包含任何解释或开场白。`

// emptyContext 没有过阈值文档时喂给模型的占位上下文
const emptyContext = "（未检索到相关文档）"

// refusalPhrases 回答中出现任一短语即视为拒答，会话记为待学习并清空出处
var refusalPhrases = []string{
	"未在现有运维知识库中找到",
	"我不知道",
	"无法回答",
}

// isRefusal 判断回答是否为拒答
func isRefusal(answer string) bool {
	for _, phrase := range refusalPhrases {
		if strings.Contains(answer, phrase) {
			return true
		}
	}
	return false
}

// buildContext 把过阈值的分块拼成编号文档块
func buildContext(docs []repository.ScoredChunk) string {
	if len(docs) == 0 {
		return emptyContext
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("【文档 %d】\n内容：\n%s\n\n元数据：\n%s\n", i+1, doc.Content, formatMetadata(doc.Metadata)))
	}
	return strings.Join(parts, "\n")
}

func formatMetadata(meta model.JSON) string {
	if len(meta) == 0 {
		return "{}"
	}
	pairs := make([]string, 0, len(meta))
	for _, key := range []string{model.MetaFilename, model.MetaSource, model.MetaKBType} {
		if v := meta.GetString(key); v != "" {
			pairs = append(pairs, fmt.Sprintf("%s: %s", key, v))
		}
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// buildUserPrompt 组合参考文档与用户问题
func buildUserPrompt(question, context string) string {
	return fmt.Sprintf("【参考文档】\n%s\n\n【用户问题】\n%s", context, question)
}
