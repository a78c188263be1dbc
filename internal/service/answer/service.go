// Package answer 实现问答管线：访客限额、学习答案直出、意图分流、检索增强生成与拒答识别。
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/repository"
)

// Retriever 混合检索能力
type Retriever interface {
	Retrieve(ctx context.Context, query, kbType string) ([]repository.ScoredChunk, error)
}

// QAStore 学习答案查询能力
type QAStore interface {
	LatestApprovedAnswer(question string) (string, error)
}

// ChatLogStore 会话记录能力
type ChatLogStore interface {
	Create(chatLog *model.ChatLog) error
	CountByUser(username string) (int64, error)
}

// HistoryRecorder 最近提问记录能力
type HistoryRecorder interface {
	Add(question string)
}

// Request 一次提问
type Request struct {
	Question  string
	Image     string // data URL，送视觉模型
	ImagePath string // 已落盘的图片文件名，只入会话记录
	Username  string
	Role      string
}

// Response 一次回答
type Response struct {
	Answer     string           `json:"answer"`
	Sources    model.SourceList `json:"sources"`
	QuestionID int64            `json:"question_id"`
	Status     string           `json:"-"`
}

// Service 问答服务
type Service struct {
	chatModel   einomodel.ChatModel
	retriever   Retriever
	qa          QAStore
	chatLogs    ChatLogStore
	history     HistoryRecorder
	visionModel string
	threshold   float64
	guestLimit  int
}

// NewService 创建问答服务；history 可为 nil
func NewService(chatModel einomodel.ChatModel, retriever Retriever, qa QAStore, chatLogs ChatLogStore, history HistoryRecorder, visionModel string, threshold float64, guestLimit int) *Service {
	return &Service{
		chatModel:   chatModel,
		retriever:   retriever,
		qa:          qa,
		chatLogs:    chatLogs,
		history:     history,
		visionModel: visionModel,
		threshold:   threshold,
		guestLimit:  guestLimit,
	}
}

// PartitionForRole 角色到知识库分区的映射：访客查 user 分区，管理员不过滤
func PartitionForRole(role string) string {
	switch role {
	case model.RoleGuest:
		return model.KBTypeUser
	case model.RoleAdmin:
		return model.KBTypeAll
	default:
		return role
	}
}

// Ask 回答一个问题并记录会话。
// 纯文本问题先查学习答案直接返回；否则走意图分流与检索增强生成，
// 生成结果命中拒答短语时会话记为 unknown 且不附出处。
func (s *Service) Ask(ctx context.Context, req *Request) (*Response, error) {
	if req.Role == model.RoleGuest {
		count, err := s.chatLogs.CountByUser(req.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to count guest questions: %w", err)
		}
		if count >= int64(s.guestLimit) {
			return &Response{
				Answer:  fmt.Sprintf("您是访客用户，提问次数已达上限 (%d次)。请注册或登录以继续使用。", s.guestLimit),
				Sources: model.SourceList{},
			}, nil
		}
	}

	// 超限的访客提问不进提问历史
	if s.history != nil {
		s.history.Add(req.Question)
	}

	var (
		answerText string
		sources    model.SourceList
		learned    bool
	)

	// 学习答案只存文本，带图提问直接走生成
	if req.Image == "" {
		stored, err := s.qa.LatestApprovedAnswer(req.Question)
		if err != nil {
			log.Printf("[answer] learned answer lookup failed: %v", err)
		} else if stored != "" {
			answerText = stored
			learned = true
		}
	}

	if !learned {
		answerText, sources = s.generateAnswer(ctx, req)
	}

	status := model.ChatStatusNormal
	if learned {
		status = model.ChatStatusLearned
	} else if isRefusal(answerText) {
		status = model.ChatStatusUnknown
		sources = nil
	}
	if sources == nil {
		sources = model.SourceList{}
	}

	chatLog := &model.ChatLog{
		Question:  req.Question,
		Answer:    answerText,
		Username:  req.Username,
		ImagePath: req.ImagePath,
		Status:    status,
		Sources:   sources,
	}
	// 记录失败不吞掉已经算出来的回答，question_id 置零
	if err := s.chatLogs.Create(chatLog); err != nil {
		log.Printf("[answer] failed to save chat log: %v", err)
	}

	return &Response{
		Answer:     answerText,
		Sources:    sources,
		QuestionID: chatLog.ID,
		Status:     status,
	}, nil
}

// Polish 对问答对中的草稿答案做轻微润色，用于学习问答入库前的人工整理
func (s *Service) Polish(ctx context.Context, question, draftAnswer string) (string, error) {
	msg := &schema.Message{Role: schema.User, Content: fmt.Sprintf(polishPrompt, question, draftAnswer)}
	reply, err := s.chatModel.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("polish failed: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}

// generateAnswer 意图分流后生成回答。
// 闲聊不走检索；专业问题先检索过阈值再组 prompt 生成。
// 检索失败与生成失败一样转成文字回答，不中断问答。
func (s *Service) generateAnswer(ctx context.Context, req *Request) (string, model.SourceList) {
	// 带图提问默认是技术问题，跳过意图识别
	if req.Image == "" && s.classifyIntent(ctx, req.Question) == intentChitchat {
		reply := s.generate(ctx, fmt.Sprintf(chitchatPrompt, req.Question), "")
		return reply, model.SourceList{}
	}

	docs, err := s.retriever.Retrieve(ctx, req.Question, PartitionForRole(req.Role))
	if err != nil {
		log.Printf("[answer] retrieval failed: %v", err)
		return fmt.Sprintf("知识库检索失败: %v", err), model.SourceList{}
	}

	grounded, sources := s.filterByThreshold(docs)
	prompt := systemPrompt + "\n\n" + buildUserPrompt(req.Question, buildContext(grounded))
	reply := s.generate(ctx, prompt, req.Image)
	return reply, sources
}

const (
	intentChitchat  = "chitchat"
	intentTechnical = "technical"
)

// classifyIntent 识别失败一律按技术问题处理
func (s *Service) classifyIntent(ctx context.Context, question string) string {
	reply := s.generate(ctx, fmt.Sprintf(classifyPrompt, question), "")
	if strings.Contains(reply, "闲聊") {
		return intentChitchat
	}
	return intentTechnical
}

// filterByThreshold 过滤超过相似度阈值的分块，并按文件名去重汇总出处
func (s *Service) filterByThreshold(docs []repository.ScoredChunk) ([]repository.ScoredChunk, model.SourceList) {
	grounded := make([]repository.ScoredChunk, 0, len(docs))
	sources := model.SourceList{}
	seen := make(map[string]bool)

	for _, doc := range docs {
		if doc.Distance > s.threshold {
			continue
		}
		grounded = append(grounded, doc)

		filename := doc.Metadata.GetString(model.MetaFilename)
		if filename == "" || seen[filename] {
			continue
		}
		seen[filename] = true
		sources = append(sources, model.SourceRef{
			ID:       doc.ID,
			Filename: filename,
			Source:   doc.Metadata.GetString(model.MetaSource),
			Score:    doc.Distance,
		})
	}
	return grounded, sources
}

// generate 调用模型生成回答；失败时把错误转成文字回答而不是中断问答
func (s *Service) generate(ctx context.Context, prompt, image string) string {
	msg := &schema.Message{Role: schema.User, Content: prompt}
	var opts []einomodel.Option

	if image != "" {
		msg = &schema.Message{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: prompt},
				{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: image}},
			},
		}
		if s.visionModel != "" {
			opts = append(opts, einomodel.WithModel(s.visionModel))
		}
	}

	reply, err := s.chatModel.Generate(ctx, []*schema.Message{msg}, opts...)
	if err != nil {
		log.Printf("[answer] generation failed: %v", err)
		return fmt.Sprintf("调用 LLM 失败: %v", err)
	}
	return reply.Content
}
